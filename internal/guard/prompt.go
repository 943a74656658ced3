package guard

import (
	"fmt"
	"unicode"
)

// Risk scoring thresholds and heuristics.
const (
	// MaxRiskScore caps the accumulated risk score.
	MaxRiskScore = 100
	// RiskThreshold is the score at or above which a prompt is rejected.
	RiskThreshold = 70

	// DefaultMaxPromptLength is the prompt length cap in characters.
	DefaultMaxPromptLength = 4000

	specialCharRatioLimit    = 0.3
	specialCharRatioSeverity = 20
	repetitionSeverity       = 25
	overlengthSeverity       = 30

	// Repetition detection: a unit of at least repetitionMinUnit characters
	// repeated repetitionMinCount times back to back.
	repetitionMinUnit  = 10
	repetitionMaxUnit  = 60
	repetitionMinCount = 4
)

// Assessment is the result of validating one inbound prompt.
// It is never persisted beyond the request's audit entry.
type Assessment struct {
	// RiskScore is 0..100; higher means more likely an injection attempt.
	RiskScore int
	// Flags lists the matched rule labels in evaluation order.
	Flags []string
	// SanitizedPrompt is the prompt to forward, truncated if over the limit.
	SanitizedPrompt string
	// IsValid is true when RiskScore < RiskThreshold.
	IsValid bool
}

// Limits carries the configurable guard thresholds.
type Limits struct {
	MaxPromptLength int
	MaxOutputLength int
	MaxQueryResults int
}

// Guard validates prompts and model output. All methods are pure and safe
// for concurrent use.
type Guard struct {
	limits Limits
}

// NewGuard creates a Guard, applying defaults for zero-valued limits.
func NewGuard(limits Limits) *Guard {
	if limits.MaxPromptLength <= 0 {
		limits.MaxPromptLength = DefaultMaxPromptLength
	}
	if limits.MaxOutputLength <= 0 {
		limits.MaxOutputLength = DefaultMaxOutputLength
	}
	if limits.MaxQueryResults <= 0 {
		limits.MaxQueryResults = DefaultMaxQueryResults
	}
	return &Guard{limits: limits}
}

// ValidatePrompt scores a raw user prompt against the injection rule list
// and structural heuristics. Deterministic for a given input.
func (g *Guard) ValidatePrompt(text string) Assessment {
	score := 0
	var flags []string

	for _, rule := range promptRules {
		if rule.Pattern.MatchString(text) {
			score += rule.Severity
			flags = append(flags, rule.Label)
		}
	}

	if ratio := specialCharRatio(text); ratio > specialCharRatioLimit {
		score += specialCharRatioSeverity
		flags = append(flags, "high_special_char_ratio")
	}

	if hasRepetition(text) {
		score += repetitionSeverity
		flags = append(flags, "repetitive_pattern")
	}

	sanitized, truncated := truncateRunes(text, g.limits.MaxPromptLength)
	if truncated {
		score += overlengthSeverity
		flags = append(flags, fmt.Sprintf("prompt_truncated_to_%d", g.limits.MaxPromptLength))
	}

	if score > MaxRiskScore {
		score = MaxRiskScore
	}

	return Assessment{
		RiskScore:       score,
		Flags:           flags,
		SanitizedPrompt: sanitized,
		IsValid:         score < RiskThreshold,
	}
}

// truncateRunes cuts text to max characters on a rune boundary. Limits are
// character counts, so cutting by byte offset could split a multi-byte rune.
// Byte length bounds rune count, so the byte check is a cheap fast path.
func truncateRunes(text string, max int) (string, bool) {
	if len(text) <= max {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text, false
	}
	return string(runes[:max]), true
}

// specialCharRatio returns the fraction of characters that are neither
// alphanumeric, whitespace, nor common punctuation.
func specialCharRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}

	special := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '.', ',', '!', '?', '\'', '"', '(', ')', '-', ':', ';', '$', '%', '@', '/', '&':
			continue
		}
		special++
	}

	return float64(special) / float64(total)
}

// hasRepetition reports whether text contains a substring of at least
// repetitionMinUnit characters repeated repetitionMinCount times
// consecutively. Regexp backreferences are unavailable, so this is a direct
// scan over candidate unit lengths.
func hasRepetition(text string) bool {
	n := len(text)
	for unit := repetitionMinUnit; unit <= repetitionMaxUnit && unit*repetitionMinCount <= n; unit++ {
		for i := 0; i+unit*repetitionMinCount <= n; i++ {
			match := true
			base := text[i : i+unit]
			for rep := 1; rep < repetitionMinCount; rep++ {
				if text[i+rep*unit:i+(rep+1)*unit] != base {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}
