package ai

import "google.golang.org/genai"

func stringList(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: description,
		Items:       &genai.Schema{Type: genai.TypeString},
	}
}

// JobRequirementsSchema is the response schema for job extraction
func JobRequirementsSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: "Structured requirements extracted from the job description.",
		Properties: map[string]*genai.Schema{
			"job_title":           {Type: genai.TypeString, Description: "The exact title of the role."},
			"must_have_skills":    stringList("5-10 essential hard skills (e.g., Python, SQL)."),
			"good_to_have_skills": stringList("3-5 bonus or preferred skills (e.g., Leadership, AWS)."),
			"min_years_experience": {
				Type:        genai.TypeNumber,
				Description: "Minimum required years of professional experience.",
			},
			"core_responsibilities": stringList("3-5 main duties/tasks for the role."),
		},
		Required: []string{
			"job_title", "must_have_skills", "good_to_have_skills",
			"min_years_experience", "core_responsibilities",
		},
		PropertyOrdering: []string{
			"job_title", "must_have_skills", "good_to_have_skills",
			"min_years_experience", "core_responsibilities",
		},
	}
}

// CandidateProfileSchema is the response schema for resume extraction
func CandidateProfileSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: "Structured data extracted from the candidate resume.",
		Properties: map[string]*genai.Schema{
			"candidate_name": {Type: genai.TypeString},
			"total_experience_years": {
				Type:        genai.TypeNumber,
				Description: "Total years of work experience, calculated from employment dates.",
			},
			"skills": stringList("All hard and soft skills found in the resume."),
			"work_experience_summary": {
				Type:        genai.TypeString,
				Description: "A concise summary of the candidate's professional history.",
			},
		},
		Required:         []string{"candidate_name", "total_experience_years", "skills", "work_experience_summary"},
		PropertyOrdering: []string{"candidate_name", "total_experience_years", "skills", "work_experience_summary"},
	}
}

// EvaluationResultSchema is the response schema for candidate evaluation
func EvaluationResultSchema() *genai.Schema {
	minScore, maxScore := 0.0, 100.0
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: "The final structured output for the resume evaluation and ranking.",
		Properties: map[string]*genai.Schema{
			"candidate_name": {Type: genai.TypeString},
			"final_score": {
				Type:        genai.TypeInteger,
				Description: "The matching score from 0 (poor fit) to 100 (perfect fit).",
				Minimum:     &minScore,
				Maximum:     &maxScore,
			},
			"status": {
				Type:        genai.TypeString,
				Description: "Final decision: 'Accepted' or 'Rejected'.",
				Enum:        []string{"Accepted", "Rejected"},
			},
			"quantitative_gaps": stringList("A list of specific, objective requirements the candidate failed to meet."),
			"recruiter_rationale": {
				Type:        genai.TypeString,
				Description: "A concise, human-readable summary of the final decision and justification.",
			},
		},
		Required: []string{"candidate_name", "final_score", "status", "quantitative_gaps", "recruiter_rationale"},
		PropertyOrdering: []string{
			"candidate_name", "final_score", "status", "quantitative_gaps", "recruiter_rationale",
		},
	}
}
