package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvanalyzer/internal/bullets"
	"cvanalyzer/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for _, style := range []style{textStyle, markdownStyle} {
		registry.RegisterFormatter(style.name, "AnalysisResult", &AnalysisFormatter{style: style})
		registry.RegisterFormatter(style.name, "SessionSnapshot", &SnapshotFormatter{style: style})
		registry.RegisterFormatter(style.name, "BatchResult", &BatchFormatter{style: style})
		registry.RegisterFormatter(style.name, "ProfileExtraction", &ProfileFormatter{style: style})
		registry.RegisterFormatter(style.name, "Bullets", &BulletsFormatter{style: style})
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult, *types.AnalysisResult:
		return "AnalysisResult"
	case types.SessionSnapshot, *types.SessionSnapshot:
		return "SessionSnapshot"
	case types.BatchResult, *types.BatchResult:
		return "BatchResult"
	case types.ProfileExtraction, *types.ProfileExtraction:
		return "ProfileExtraction"
	case []types.Bullet:
		return "Bullets"
	default:
		return "any"
	}
}

// deref accepts either T or *T
func deref[T any](data any) (T, error) {
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("expected %T, got %T", zero, data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// style holds the headings and emphasis of one human-readable format
type style struct {
	name     string
	title    func(string) string
	section  func(string) string
	label    func(string) string
	renderer bullets.Renderer
}

var textStyle = style{
	name:     "text",
	title:    func(s string) string { return "=== " + strings.ToUpper(s) + " ===\n\n" },
	section:  func(s string) string { return s + ":\n" },
	label:    func(s string) string { return s + ": " },
	renderer: bullets.PlainText,
}

var markdownStyle = style{
	name:     "markdown",
	title:    func(s string) string { return "# " + s + "\n\n" },
	section:  func(s string) string { return "## " + s + "\n\n" },
	label:    func(s string) string { return "**" + s + ":** " },
	renderer: bullets.Markdown,
}

func (s style) list(out *strings.Builder, items []string) {
	for _, item := range items {
		if s.name == "text" {
			item = bullets.StripMarkup(item)
		}
		fmt.Fprintf(out, "- %s\n", item)
	}
	out.WriteString("\n")
}

func (s style) analysis(out *strings.Builder, result types.AnalysisResult) {
	out.WriteString(s.label("Fit Score"))
	fmt.Fprintf(out, "%d/100\n\n", result.FitScore)
	out.WriteString(s.section("Fit Reason"))
	out.WriteString(result.FitReason)
	out.WriteString("\n\n")
	out.WriteString(s.section("Expected Salary"))
	out.WriteString(result.ExpectedSalaryNote)
	out.WriteString("\n\n")

	out.WriteString(s.section("Improvement Suggestions"))
	if len(result.ImprovementSuggestions) == 0 {
		out.WriteString("None.\n\n")
	} else {
		s.list(out, result.ImprovementSuggestions)
	}
}

// AnalysisFormatter renders a fit assessment. Experience bullets are shown only
// when the oracle supplied them.
type AnalysisFormatter struct {
	style style
}

func (af *AnalysisFormatter) Format(data any) (string, error) {
	result, err := deref[types.AnalysisResult](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(af.style.title("CV Fit Analysis"))
	af.style.analysis(&output, result)
	if len(result.ExperienceEnhancement) > 0 {
		output.WriteString(af.style.section("Experience Enhancement"))
		af.style.list(&output, result.ExperienceEnhancement)
	}
	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (af *AnalysisFormatter) SupportedType() string {
	return "AnalysisResult"
}

// SnapshotFormatter renders a session's result together with the bullets the
// session rendered for it
type SnapshotFormatter struct {
	style style
}

func (sf *SnapshotFormatter) Format(data any) (string, error) {
	snap, err := deref[types.SessionSnapshot](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(sf.style.title("CV Fit Analysis"))
	switch {
	case snap.Result != nil:
		sf.style.analysis(&output, *snap.Result)
		if len(snap.RenderedBullets) > 0 {
			output.WriteString(sf.style.section("Experience Enhancement"))
			output.WriteString(bullets.List(snap.RenderedBullets, sf.style.renderer))
			output.WriteString("\n\n")
		}
	case snap.ErrorCode != "":
		output.WriteString(sf.style.label("Error"))
		fmt.Fprintf(&output, "%s (%s)\n\n", snap.ErrorMessage, snap.ErrorCode)
	default:
		output.WriteString("No analysis yet.\n\n")
	}

	if snap.Debug {
		output.WriteString(sf.style.section("Debug"))
		output.WriteString(sf.style.label("Session"))
		output.WriteString(snap.ID + "\n")
		output.WriteString(sf.style.label("Phase"))
		output.WriteString(snap.Phase + "\n")
		fmt.Fprintf(&output, "%s%d\n", sf.style.label("Oracle bullets"), len(snap.OracleBullets))
	}
	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (sf *SnapshotFormatter) SupportedType() string {
	return "SessionSnapshot"
}

// BatchFormatter renders one section per file, failed files included
type BatchFormatter struct {
	style style
}

func (bf *BatchFormatter) Format(data any) (string, error) {
	batch, err := deref[types.BatchResult](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(bf.style.title("Batch Analysis"))
	failed := 0
	for _, item := range batch.Results {
		if item.Error != "" {
			failed++
		}
	}
	fmt.Fprintf(&output, "%s%d (%d failed)\n\n", bf.style.label("Files"), len(batch.Results), failed)

	for i, item := range batch.Results {
		header := fmt.Sprintf("%d. %s", i+1, item.Filename)
		if item.Error != "" {
			header += " [" + item.Error + "]"
		}
		output.WriteString(bf.style.section(header))
		bf.style.analysis(&output, item.Result)
	}
	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (bf *BatchFormatter) SupportedType() string {
	return "BatchResult"
}

// ProfileFormatter renders extracted candidate fields, skipping absent ones
type ProfileFormatter struct {
	style style
}

func (pf *ProfileFormatter) Format(data any) (string, error) {
	profile, err := deref[types.ProfileExtraction](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(pf.style.title("Candidate Profile"))
	for _, field := range []struct {
		label string
		value *string
	}{
		{"Name", profile.Name},
		{"Email", profile.Email},
		{"Phone", profile.Phone},
		{"Location", profile.Location},
		{"Experience", profile.YearsExperience},
	} {
		if field.value == nil {
			continue
		}
		output.WriteString(pf.style.label(field.label))
		output.WriteString(*field.value + "\n")
	}
	output.WriteString("\n")

	if profile.Summary != nil {
		output.WriteString(pf.style.section("Summary"))
		output.WriteString(*profile.Summary + "\n\n")
	}
	for _, list := range []struct {
		label string
		items []string
	}{
		{"Skills", profile.Skills},
		{"Education", profile.Education},
		{"Certifications", profile.Certifications},
	} {
		if len(list.items) == 0 {
			continue
		}
		output.WriteString(pf.style.section(list.label))
		pf.style.list(&output, list.items)
	}
	return strings.TrimRight(output.String(), "\n") + "\n", nil
}

func (pf *ProfileFormatter) SupportedType() string {
	return "ProfileExtraction"
}

// BulletsFormatter renders experience bullets with the marker
type BulletsFormatter struct {
	style style
}

func (bf *BulletsFormatter) Format(data any) (string, error) {
	list, ok := data.([]types.Bullet)
	if !ok {
		return "", fmt.Errorf("expected []types.Bullet, got %T", data)
	}
	return bullets.List(list, bf.style.renderer) + "\n", nil
}

func (bf *BulletsFormatter) SupportedType() string {
	return "Bullets"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
