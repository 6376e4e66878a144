package types

// UploadedDocument is a résumé as received from the caller. It is not modified
// after construction.
type UploadedDocument struct {
	Data      []byte `json:"-"`
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType,omitempty"`
}

// AnalysisResult represents the normalized fit assessment
type AnalysisResult struct {
	FitScore               int      `json:"fit_score"` // 0-100 inclusive
	FitReason              string   `json:"fit_reason"`
	ExpectedSalaryNote     string   `json:"expected_salary_note"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
	ExperienceEnhancement  []string `json:"experience_enhancement"`
}

// Span is a run of bullet text, optionally emphasized
type Span struct {
	Text       string `json:"text"`
	Emphasized bool   `json:"emphasized,omitempty"`
}

// Bullet is one experience-enhancement line made of spans
type Bullet struct {
	Spans []Span `json:"spans"`
}

// ProfileExtraction represents structured fields pulled out of a résumé
type ProfileExtraction struct {
	Name            *string  `json:"name"`
	Email           *string  `json:"email"`
	Phone           *string  `json:"phone"`
	Location        *string  `json:"location"`
	YearsExperience *string  `json:"years_experience"`
	Skills          []string `json:"skills"`
	Education       []string `json:"education"`
	Certifications  []string `json:"certifications"`
	Summary         *string  `json:"summary"`
}

// BatchItem is the outcome for one file of a batch analysis
type BatchItem struct {
	Filename string         `json:"filename"`
	Result   AnalysisResult `json:"result"`
	Error    string         `json:"error,omitempty"` // error code when the file failed
}

// BatchResult represents the output of a batch analysis
type BatchResult struct {
	JobDescription string      `json:"job_description"`
	Results        []BatchItem `json:"results"`
}

// SessionSnapshot is a point-in-time copy of an analysis session
type SessionSnapshot struct {
	ID              string          `json:"id"`
	Phase           string          `json:"phase"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	Result          *AnalysisResult `json:"result,omitempty"`
	RenderedBullets []Bullet        `json:"renderedBullets,omitempty"`
	OracleBullets   []string        `json:"oracleBullets,omitempty"`
	Debug           bool            `json:"debug"`
}

// TokenUsage represents oracle token accounting for one call
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}
