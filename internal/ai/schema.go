package ai

import "google.golang.org/genai"

func stringList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func nullableString() *genai.Schema {
	nullable := true
	return &genai.Schema{Type: genai.TypeString, Nullable: &nullable}
}

// analysisSchema describes the fit analysis reply
func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"improvement_suggestions": stringList(),
			"fit_score":               {Type: genai.TypeNumber},
			"fit_reason":              {Type: genai.TypeString},
			"expected_salary_note":    {Type: genai.TypeString},
			"experience_enhancement":  stringList(),
		},
		Required:         []string{"improvement_suggestions", "fit_score", "fit_reason", "expected_salary_note"},
		PropertyOrdering: []string{"fit_score", "fit_reason", "improvement_suggestions", "expected_salary_note", "experience_enhancement"},
	}
}

// profileSchema describes the profile extraction reply
func profileSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":             nullableString(),
			"email":            nullableString(),
			"phone":            nullableString(),
			"location":         nullableString(),
			"years_experience": nullableString(),
			"skills":           stringList(),
			"education":        stringList(),
			"certifications":   stringList(),
			"summary":          nullableString(),
		},
		Required: []string{"skills", "education", "certifications"},
	}
}
