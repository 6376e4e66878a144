package bullets

import (
	"html"
	"regexp"
	"strings"

	"cvanalyzer/internal/types"
)

// Marker prefixes every rendered bullet line.
const Marker = "• "

// Renderer turns one bullet into a line of text
type Renderer func(types.Bullet) string

var (
	htmlTag  = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)
	boldMark = regexp.MustCompile(`\*\*`)
)

// StripMarkup removes HTML tags and markdown bold markers. Oracle bullets are
// passed through verbatim and may carry either.
func StripMarkup(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = boldMark.ReplaceAllString(s, "")
	return html.UnescapeString(s)
}

// PlainText renders a bullet without any emphasis markup.
func PlainText(b types.Bullet) string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(StripMarkup(s.Text))
	}
	return sb.String()
}

// Markdown renders emphasized spans in bold.
func Markdown(b types.Bullet) string {
	var sb strings.Builder
	for _, s := range b.Spans {
		if s.Emphasized && strings.TrimSpace(s.Text) != "" {
			sb.WriteString("**")
			sb.WriteString(s.Text)
			sb.WriteString("**")
			continue
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// HTML renders the bullet with escaped text and <strong> emphasis.
func HTML(b types.Bullet) string {
	var sb strings.Builder
	for _, s := range b.Spans {
		if s.Emphasized {
			sb.WriteString("<strong>")
			sb.WriteString(html.EscapeString(s.Text))
			sb.WriteString("</strong>")
			continue
		}
		sb.WriteString(html.EscapeString(s.Text))
	}
	return sb.String()
}

// RendererFor returns the renderer registered under name, defaulting to plain text.
func RendererFor(name string) Renderer {
	switch name {
	case "markdown":
		return Markdown
	case "html":
		return HTML
	default:
		return PlainText
	}
}

// Lines renders bullets with the bullet marker.
func Lines(bullets []types.Bullet, render Renderer) []string {
	out := make([]string, 0, len(bullets))
	for _, b := range bullets {
		out = append(out, Marker+render(b))
	}
	return out
}

// List renders bullets one per line.
func List(bullets []types.Bullet, render Renderer) string {
	return strings.Join(Lines(bullets, render), "\n")
}

// TextList renders plain strings as a bullet list.
func TextList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, Marker+item)
	}
	return strings.Join(lines, "\n")
}
