package config

// Prompt kinds, one per model call the screener makes
const (
	PromptExtractJob    = "extractJob"
	PromptExtractResume = "extractResume"
	PromptEvaluate      = "evaluate"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}

	opCfg.CustomPrompts.SystemPrompts = mergePromptSet(opCfg.CustomPrompts.SystemPrompts, c.AI.CustomPrompts.SystemPrompts)
	opCfg.CustomPrompts.UserPrompts = mergePromptSet(opCfg.CustomPrompts.UserPrompts, c.AI.CustomPrompts.UserPrompts)
}

// mergePromptSet fills empty operation-level prompt fields from the global set
func mergePromptSet(op, global PromptSet) PromptSet {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return PromptSet{
		ExtractJob:        pick(op.ExtractJob, global.ExtractJob),
		ExtractJobFile:    pick(op.ExtractJobFile, global.ExtractJobFile),
		ExtractResume:     pick(op.ExtractResume, global.ExtractResume),
		ExtractResumeFile: pick(op.ExtractResumeFile, global.ExtractResumeFile),
		Evaluate:          pick(op.Evaluate, global.Evaluate),
		EvaluateFile:      pick(op.EvaluateFile, global.EvaluateFile),
	}
}

// GetExtractConfig returns the AI configuration for job and resume extraction with fallback to global config
func (c *Config) GetExtractConfig() OperationAIConfig {
	config := c.AI.Extract
	c.applyOperationDefaults(&config)
	return config
}

// GetEvaluateConfig returns the AI configuration for candidate evaluation with fallback to global config
func (c *Config) GetEvaluateConfig() OperationAIConfig {
	config := c.AI.Evaluate
	c.applyOperationDefaults(&config)
	return config
}

// Inline returns the inline prompt text configured for kind.
func (p PromptSet) Inline(kind string) string {
	switch kind {
	case PromptExtractJob:
		return p.ExtractJob
	case PromptExtractResume:
		return p.ExtractResume
	case PromptEvaluate:
		return p.Evaluate
	default:
		return ""
	}
}

// File returns the prompt file path configured for kind.
func (p PromptSet) File(kind string) string {
	switch kind {
	case PromptExtractJob:
		return p.ExtractJobFile
	case PromptExtractResume:
		return p.ExtractResumeFile
	case PromptEvaluate:
		return p.EvaluateFile
	default:
		return ""
	}
}
