package types

import "time"

// Evaluation statuses
const (
	StatusAccepted         = "Accepted"
	StatusRejected         = "Rejected"
	StatusRejectedSystem   = "Rejected (System Error)"
	StatusRejectedLLMError = "Rejected (LLM Error)"
	StatusFailedSystem     = "Failed (System Error)"
)

// Job title sentinels emitted when requirements could not be extracted
const (
	JobTitleClientError    = "Error"
	JobTitleParsingFailed  = "Parsing Failed"
	EmptyResumeSummary     = "No resume text available."
	SystemFailureGap       = "System Failure"
	SystemFailureRationale = "Critical error during processing: "
)

// JobRequirements is the structured view of a job description
type JobRequirements struct {
	JobTitle             string   `json:"job_title"`
	MustHaveSkills       []string `json:"must_have_skills"`
	GoodToHaveSkills     []string `json:"good_to_have_skills"`
	MinYearsExperience   float64  `json:"min_years_experience"`
	CoreResponsibilities []string `json:"core_responsibilities"`
}

// IsSentinel reports whether the record stands in for a failed extraction.
func (j JobRequirements) IsSentinel() bool {
	return j.JobTitle == JobTitleClientError || j.JobTitle == JobTitleParsingFailed
}

// IsClientError reports whether extraction never reached a model. A parsing
// failure after a model call is still a usable record to screen against.
func (j JobRequirements) IsClientError() bool {
	return j.JobTitle == JobTitleClientError
}

// Normalized replaces nil lists with empty ones so records always serialize as arrays.
func (j JobRequirements) Normalized() JobRequirements {
	j.MustHaveSkills = nonNil(j.MustHaveSkills)
	j.GoodToHaveSkills = nonNil(j.GoodToHaveSkills)
	j.CoreResponsibilities = nonNil(j.CoreResponsibilities)
	return j
}

// CandidateProfile is the structured view of a single resume
type CandidateProfile struct {
	CandidateName         string   `json:"candidate_name"`
	TotalExperienceYears  float64  `json:"total_experience_years"`
	Skills                []string `json:"skills"`
	WorkExperienceSummary string   `json:"work_experience_summary"`
}

func (p CandidateProfile) Normalized() CandidateProfile {
	p.Skills = nonNil(p.Skills)
	return p
}

// EvaluationResult is the scored verdict for one candidate
type EvaluationResult struct {
	CandidateName      string   `json:"candidate_name"`
	FinalScore         int      `json:"final_score"`
	Status             string   `json:"status"`
	QuantitativeGaps   []string `json:"quantitative_gaps"`
	RecruiterRationale string   `json:"recruiter_rationale"`
}

func (e EvaluationResult) Normalized() EvaluationResult {
	e.QuantitativeGaps = nonNil(e.QuantitativeGaps)
	return e
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ScreeningRow is one line of the ranked results table
type ScreeningRow struct {
	CandidateName      string            `json:"candidate_name"`
	FileName           string            `json:"file_name"`
	FinalScore         int               `json:"final_score"`
	Status             string            `json:"status"`
	RecruiterRationale string            `json:"recruiter_rationale"`
	QuantitativeGaps   []string          `json:"quantitative_gaps"`
	ExperienceYears    float64           `json:"experience_years"`
	Profile            *CandidateProfile `json:"profile,omitempty"`
	StoredAt           string            `json:"stored_at,omitempty"`
}

// ScreeningReport is the outcome of screening a batch of resumes against one job
type ScreeningReport struct {
	BatchID         string          `json:"batch_id"`
	JobRequirements JobRequirements `json:"job_requirements"`
	Rows            []ScreeningRow  `json:"rows"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

// Accepted counts rows with an Accepted status.
func (r *ScreeningReport) Accepted() int {
	n := 0
	for _, row := range r.Rows {
		if row.Status == StatusAccepted {
			n++
		}
	}
	return n
}

// Failed counts rows that could not be processed at all.
func (r *ScreeningReport) Failed() int {
	n := 0
	for _, row := range r.Rows {
		if row.Status == StatusFailedSystem {
			n++
		}
	}
	return n
}

// Upload is a resume file handed to the screener
type Upload struct {
	FileName string
	Data     []byte
}
