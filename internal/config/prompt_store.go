package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// PromptStore holds the content of prompt files keyed by their configured path.
// Content is swapped atomically on Reload so readers never see a partial set.
type PromptStore struct {
	mu       sync.RWMutex
	paths    []string
	contents map[string]string
}

// NewPromptStore creates a store for the given prompt file paths
func NewPromptStore(paths []string) *PromptStore {
	return &PromptStore{
		paths:    paths,
		contents: make(map[string]string),
	}
}

// Get returns the loaded content for path, or "" if nothing is loaded for it.
// A nil store behaves as empty.
func (s *PromptStore) Get(path string) string {
	if s == nil || path == "" {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contents[path]
}

// Paths returns the prompt files this store reads
func (s *PromptStore) Paths() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.paths)
}

// Load reads every prompt file. It fails if any file is missing or empty.
func (s *PromptStore) Load() error {
	if len(s.paths) == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using built-in defaults")
		return nil
	}

	contents := make(map[string]string, len(s.paths))
	for _, path := range s.paths {
		content, err := loadPromptFromFile(path)
		if err != nil {
			return err
		}
		contents[path] = content
	}

	s.mu.Lock()
	s.contents = contents
	s.mu.Unlock()

	log.Printf("[CONFIG] Total custom prompts loaded: %d", len(contents))
	return nil
}

// Reload re-reads all prompt files. On failure the previous content is kept.
func (s *PromptStore) Reload() error {
	return s.Load()
}

// loadPromptFromFile reads a prompt file and rejects empty content
func loadPromptFromFile(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for prompt file '%s': %w", filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file not found: %s", absPath)
		}
		return "", fmt.Errorf("failed to read prompt file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file '%s' is empty", absPath)
	}

	log.Printf("[CONFIG] Successfully loaded prompt from file: %s (%d characters)", absPath, len(trimmed))
	return trimmed, nil
}

// PromptFiles collects every prompt file path referenced by the configuration, without duplicates
func (c *Config) PromptFiles() []string {
	var paths []string
	add := func(set PromptSet) {
		for _, kind := range []string{PromptExtractJob, PromptExtractResume, PromptEvaluate} {
			if p := set.File(kind); p != "" && !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}

	for _, prompts := range []PromptConfig{c.AI.CustomPrompts, c.AI.Extract.CustomPrompts, c.AI.Evaluate.CustomPrompts} {
		add(prompts.SystemPrompts)
		add(prompts.UserPrompts)
	}
	return paths
}

// validatePromptFiles checks that every referenced prompt file exists before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string
	for _, path := range c.PromptFiles() {
		absPath, err := filepath.Abs(path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid prompt path: %s", path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("prompt file not found: %s", absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
