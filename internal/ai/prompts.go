package ai

// Prompts holds one prompt per oracle operation
type Prompts struct {
	AnalyzeFit     string
	ExtractProfile string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = Prompts{
	AnalyzeFit: `You are an expert technical recruiter and hiring manager. You compare a candidate's CV with a job description and judge how well the candidate fits.

- Be factual and specific; avoid hallucinations
- Base every suggestion on something present in, or missing from, the CV
- Never invent experience the CV does not mention
- When unsure about salary, give a broad range rather than a point estimate`,

	ExtractProfile: `You are a precise document parser for recruiting. You extract structured facts from CVs.

- Copy values as they appear in the CV
- Use null for any single-value field the CV does not state
- Use an empty list when the CV has no entries for a list field`,
}

// DefaultUserPrompts provides the default user prompt templates. AnalyzeFit
// takes the CV text and the job description; ExtractProfile takes the CV text.
var DefaultUserPrompts = Prompts{
	AnalyzeFit: `Analyze the candidate CV against the job description.

Return ONLY a JSON object with these keys and types:
- improvement_suggestions: string[] (3-8 bullets, concise)
- fit_score: number (0-100)
- fit_reason: string
- expected_salary_note: string
- experience_enhancement: string[] (optional; CV-ready bullets that start with an action verb)

CV:
"""%s"""

JOB DESCRIPTION:
"""%s"""

Be factual and specific; avoid hallucinations. Keep salary note for Israel (gross/month) as a broad range when uncertain.`,

	ExtractProfile: `Extract structured information from the following CV.
Return ONLY a JSON object with keys:
- name (string|null)
- email (string|null)
- phone (string|null)
- location (string|null)
- years_experience (string|null)
- skills (string[])
- education (string[])
- certifications (string[])
- summary (string|null)

CV:
"""%s"""`,
}
