package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"resumescreener/internal/config"
	"resumescreener/internal/types"
)

// responsibilityHeaders are matched case-insensitively, longest first
var responsibilityHeaders = []string{
	"Core Responsibilities",
	"Key Responsibilities",
	"Responsibilities",
	"Duties",
}

// responsibilitiesHeader matches the earliest header; alternatives are tried
// longest first so "Core Responsibilities" beats "Responsibilities" at the same offset
var responsibilitiesHeader = regexp.MustCompile(`(?i)(` + strings.Join(headerAlternatives(), "|") + `)`)

func headerAlternatives() []string {
	alts := make([]string, len(responsibilityHeaders))
	for i, h := range responsibilityHeaders {
		alts[i] = regexp.QuoteMeta(h)
	}
	return alts
}

var (
	bulletMarkers  = []string{"-", "*", "•", "◦", "‣", "·", "–", "—"}
	numberedBullet = regexp.MustCompile(`^\d{1,3}[.)]\s+`)
)

// HeuristicDefaults are used when a limit is left at zero
var HeuristicDefaults = config.HeuristicLimit{
	Window:          1000,
	MaxBullets:      8,
	FallbackLines:   6,
	MinWordsPerLine: 3,
}

func withHeuristicDefaults(l config.HeuristicLimit) config.HeuristicLimit {
	if l.Window <= 0 {
		l.Window = HeuristicDefaults.Window
	}
	if l.MaxBullets <= 0 {
		l.MaxBullets = HeuristicDefaults.MaxBullets
	}
	if l.FallbackLines <= 0 {
		l.FallbackLines = HeuristicDefaults.FallbackLines
	}
	if l.MinWordsPerLine <= 0 {
		l.MinWordsPerLine = HeuristicDefaults.MinWordsPerLine
	}
	return l
}

// heuristicResponsibilities approximates core responsibilities without a model.
// It reads the section following the earliest responsibilities header; when there
// is none, or nothing usable follows it, the first non-empty lines are returned.
func heuristicResponsibilities(text string, limits config.HeuristicLimit) []string {
	limits = withHeuristicDefaults(limits)

	if start, ok := findResponsibilitiesSection(text); ok {
		window := takeRunes(text[start:], limits.Window)
		if collected := collectResponsibilities(window, limits); len(collected) > 0 {
			return collected
		}
	}
	return firstNonEmptyLines(text, limits.FallbackLines)
}

// heuristicSummary joins the first non-empty lines of a resume
func heuristicSummary(text string, limits config.HeuristicLimit) string {
	limits = withHeuristicDefaults(limits)
	lines := firstNonEmptyLines(text, limits.FallbackLines)
	if len(lines) == 0 {
		return types.EmptyResumeSummary
	}
	return strings.Join(lines, " ")
}

// findResponsibilitiesSection returns the byte offset just past the earliest header.
func findResponsibilitiesSection(text string) (int, bool) {
	loc := responsibilitiesHeader.FindStringIndex(text)
	if loc == nil {
		return 0, false
	}
	return loc[1], true
}

func collectResponsibilities(window string, limits config.HeuristicLimit) []string {
	var out []string
	for i, raw := range strings.Split(window, "\n") {
		line := strings.TrimSpace(raw)
		if i == 0 {
			// remainder of the header line, usually ":" or empty
			line = strings.TrimSpace(strings.TrimLeft(line, ":-–— "))
		}
		if line == "" {
			continue
		}
		if limits.StopAtSection && len(out) > 0 && isSectionHeader(line) {
			break
		}

		if item, ok := stripBullet(line); ok {
			if item != "" {
				out = append(out, item)
			}
		} else if len(strings.Fields(line)) >= limits.MinWordsPerLine {
			out = append(out, line)
		}

		if len(out) >= limits.MaxBullets {
			break
		}
	}
	return out
}

// isSectionHeader reports a short line ending in a colon, such as "Requirements:"
func isSectionHeader(line string) bool {
	if !strings.HasSuffix(line, ":") {
		return false
	}
	if _, bullet := stripBullet(line); bullet {
		return false
	}
	return len(strings.Fields(line)) <= 4
}

// stripBullet removes a leading bullet or list number
func stripBullet(line string) (string, bool) {
	for _, marker := range bulletMarkers {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return strings.TrimSpace(rest), true
		}
	}
	if loc := numberedBullet.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:]), true
	}
	return line, false
}

func firstNonEmptyLines(text string, n int) []string {
	out := make([]string, 0, n)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}

// takeRunes returns at most n characters of s
func takeRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
