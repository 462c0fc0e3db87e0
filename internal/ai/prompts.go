package ai

import (
	"strconv"
	"strings"

	"resumescreener/internal/config"
)

// Placeholders substituted into user prompt templates. Templates are plain
// text; a literal % is never interpreted.
const (
	PlaceholderText             = "{text}"
	PlaceholderJobRequirements  = "{job_requirements}"
	PlaceholderCandidateProfile = "{candidate_profile}"
	PlaceholderThreshold        = "{threshold}"
)

// DefaultSystemPrompts provides the default system instructions, keyed by prompt kind
var DefaultSystemPrompts = map[string]string{
	config.PromptExtractJob: `You are an expert Job Analyst. You read job descriptions and extract the hiring requirements exactly as written.

- Never invent requirements that are not stated or clearly implied
- Keep skill names short and canonical (e.g. "Python", "PostgreSQL", "Kubernetes")
- Report experience as a number of years; use 0 when none is stated`,

	config.PromptExtractResume: `You are an expert Resume Data Extractor. You read resumes and extract a factual candidate profile.

- Only report skills and experience present in the resume text
- Compute total experience from employment dates when they are given
- Use the candidate's full name as written at the top of the resume`,

	config.PromptEvaluate: `You are a Senior Technical Recruiter and an expert in candidate screening.
You evaluate a candidate's structured profile against structured job requirements objectively and consistently.
You perform a detailed, step-by-step assessment before giving the final result.`,
}

// DefaultUserPrompts provides the default user prompt templates, keyed by prompt kind.
// Job and resume templates take {text}; the evaluate template takes
// {job_requirements}, {candidate_profile} and {threshold}.
var DefaultUserPrompts = map[string]string{
	config.PromptExtractJob: `Analyze the following job description and extract:

- job_title: the exact title of the role
- must_have_skills: 5-10 essential hard skills
- good_to_have_skills: 3-5 bonus or preferred skills
- min_years_experience: minimum required years of professional experience
- core_responsibilities: 3-5 main duties or tasks for the role

Respond with a single JSON object.

**Job Description:**
-----
{text}
-----`,

	config.PromptExtractResume: `Analyze the following resume and extract:

- candidate_name: the candidate's full name
- total_experience_years: total years of work experience, calculated from employment dates
- skills: all hard and soft skills found in the resume
- work_experience_summary: a concise summary of the candidate's professional history

Respond with a single JSON object.

**Resume:**
-----
{text}
-----`,

	config.PromptEvaluate: `Evaluate the candidate profile against the job requirements.

**Evaluation Criteria:**

1. **Quantitative Check (50% Score Weight):**
   - Must-Have Skills: did the candidate mention all skills in must_have_skills?
   - Experience: does total_experience_years meet or exceed min_years_experience?
   - Core Responsibilities: are the candidate's past activities (in work_experience_summary) highly relevant to core_responsibilities?

2. **Qualitative Check (50% Score Weight):**
   - Good-to-Have Skills: does the candidate possess skills from good_to_have_skills?
   - Transferability & Depth: assess the overall quality, relevance and depth of the candidate's experience. Look for leadership, project ownership and real-world impact.

**Instructions for Output:**
- Calculate an integer final_score from 0 to 100.
- Set status to 'Accepted' if the score is above {threshold}, or 'Rejected' otherwise.
- Fill quantitative_gaps with specific failed checks (e.g. "Missing skill: Python 5+ years").
- Provide a professional, concise recruiter_rationale justifying the score and decision.
- Respond with a single JSON object matching the EvaluationResult schema.

**Job Requirements:**
-----
{job_requirements}
-----

**Candidate Profile:**
-----
{candidate_profile}
-----`,
}

// Prompts resolves system and user prompts per kind. File-backed prompts are
// read through the shared store on every call so a reload takes effect immediately.
type Prompts struct {
	extract  config.PromptConfig
	evaluate config.PromptConfig
	store    *config.PromptStore
}

// NewPrompts builds a resolver from the operation-level prompt configuration
func NewPrompts(cfg *config.Config) *Prompts {
	if cfg == nil {
		return &Prompts{}
	}
	return &Prompts{
		extract:  cfg.GetExtractConfig().CustomPrompts,
		evaluate: cfg.GetEvaluateConfig().CustomPrompts,
		store:    cfg.Prompts,
	}
}

func (p *Prompts) configFor(kind string) config.PromptConfig {
	if kind == config.PromptEvaluate {
		return p.evaluate
	}
	return p.extract
}

// System returns the system prompt for kind
func (p *Prompts) System(kind string) string {
	set := p.configFor(kind).SystemPrompts
	return resolvePrompt(p.store.Get(set.File(kind)), set.Inline(kind), DefaultSystemPrompts[kind])
}

// PromptValues fills the placeholders of a user prompt template
type PromptValues struct {
	Text             string
	JobRequirements  string
	CandidateProfile string
	Threshold        int
}

// User renders the user prompt template for kind. Substitution is a single
// pass, so placeholder text inside a value is left as is.
func (p *Prompts) User(kind string, values PromptValues) string {
	set := p.configFor(kind).UserPrompts
	template := resolvePrompt(p.store.Get(set.File(kind)), set.Inline(kind), DefaultUserPrompts[kind])
	return strings.NewReplacer(
		PlaceholderText, values.Text,
		PlaceholderJobRequirements, values.JobRequirements,
		PlaceholderCandidateProfile, values.CandidateProfile,
		PlaceholderThreshold, strconv.Itoa(values.Threshold),
	).Replace(template)
}

// resolvePrompt picks a prompt file's content, then inline configuration, then the default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
