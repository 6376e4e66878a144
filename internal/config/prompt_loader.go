package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile names one prompt file slot and where its content goes
type promptFile struct {
	path      string
	promptTyp string // "system" or "user"
	operation string
	target    *string
}

// promptFiles resolves the effective file path for every slot, preferring the
// operation-level path over the global one.
func (c *Config) promptFiles() []promptFile {
	global := c.AI.CustomPrompts
	analyze := c.AI.Analyze.CustomPrompts
	extract := c.AI.Extract.CustomPrompts

	return []promptFile{
		{firstNonEmpty(analyze.SystemPrompts.AnalyzeFitFile, global.SystemPrompts.AnalyzeFitFile),
			"system", "analyzeFit", &c.Loaded.Analyze.SystemPrompts.AnalyzeFit},
		{firstNonEmpty(analyze.UserPrompts.AnalyzeFitFile, global.UserPrompts.AnalyzeFitFile),
			"user", "analyzeFit", &c.Loaded.Analyze.UserPrompts.AnalyzeFit},
		{firstNonEmpty(extract.SystemPrompts.ExtractProfileFile, global.SystemPrompts.ExtractProfileFile),
			"system", "extractProfile", &c.Loaded.Extract.SystemPrompts.ExtractProfile},
		{firstNonEmpty(extract.UserPrompts.ExtractProfileFile, global.UserPrompts.ExtractProfileFile),
			"user", "extractProfile", &c.Loaded.Extract.UserPrompts.ExtractProfile},
	}
}

// loadPromptsFromFiles loads custom prompts from external files if file paths are specified
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	c.Loaded = AllLoadedPrompts{}
	for _, pf := range c.promptFiles() {
		if pf.path == "" {
			continue
		}
		content, err := loadPromptFromFile(pf.path, pf.promptTyp, pf.operation)
		if err != nil {
			return err
		}
		*pf.target = content
	}

	log.Printf("[CONFIG] Custom prompts loaded from files: %d", c.Loaded.Count())
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles checks every configured prompt file exists before any is loaded
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, pf := range c.promptFiles() {
		if pf.path == "" {
			continue
		}
		absPath, err := filepath.Abs(pf.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", pf.promptTyp, pf.operation, pf.path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", pf.promptTyp, pf.operation, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
