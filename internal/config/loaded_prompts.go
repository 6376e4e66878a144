package config

// LoadedPromptSet holds prompt content read from files
type LoadedPromptSet struct {
	AnalyzeFit     string
	ExtractProfile string
}

// OperationLoadedPrompts holds loaded prompts for a specific operation
type OperationLoadedPrompts struct {
	SystemPrompts LoadedPromptSet
	UserPrompts   LoadedPromptSet
}

// AllLoadedPrompts holds loaded prompts for every operation. Operation
// entries already include the global file fallback.
type AllLoadedPrompts struct {
	Analyze OperationLoadedPrompts
	Extract OperationLoadedPrompts
}

// Count returns the number of non-empty loaded prompts
func (p AllLoadedPrompts) Count() int {
	n := 0
	for _, s := range []string{
		p.Analyze.SystemPrompts.AnalyzeFit,
		p.Analyze.UserPrompts.AnalyzeFit,
		p.Extract.SystemPrompts.ExtractProfile,
		p.Extract.UserPrompts.ExtractProfile,
	} {
		if s != "" {
			n++
		}
	}
	return n
}
