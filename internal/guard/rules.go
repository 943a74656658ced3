// Package guard validates prompts entering the model and text leaving it.
// Detection is data-driven: an ordered list of (pattern, severity, label)
// rules, so new rules are additive and evaluation order stays explicit.
package guard

import "regexp"

// Rule is a single detection pattern. Severity is added to the running risk
// score when the pattern matches; Label is appended to the assessment flags.
type Rule struct {
	Pattern  *regexp.Regexp
	Severity int
	Label    string
}

// promptRules is the ordered rule list applied to inbound user prompts.
// Direct injection patterns carry severity >= 70 so a single match alone
// fails validation; obfuscation signals are weaker and only fail in
// combination.
var promptRules = []Rule{
	// Instruction override
	{
		Pattern:  regexp.MustCompile(`(?i)\b(ignore|disregard|forget)\s+(all\s+|any\s+|the\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|training|guidelines?)`),
		Severity: 80,
		Label:    "instruction_override",
	},
	{
		Pattern:  regexp.MustCompile(`(?i)\bforget\s+(everything|your\s+training)\b`),
		Severity: 80,
		Label:    "instruction_override",
	},
	// Role reassignment
	{
		Pattern:  regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(a|an|the)\b`),
		Severity: 75,
		Label:    "role_reassignment",
	},
	{
		Pattern:  regexp.MustCompile(`(?i)\b(pretend\s+to\s+be|act\s+as\s+(a|an|if|though)|roleplay\s+as)\b`),
		Severity: 75,
		Label:    "role_reassignment",
	},
	// System prompt extraction
	{
		Pattern:  regexp.MustCompile(`(?i)\bwhat\s+(are|were)\s+your\s+(instructions?|rules?|guidelines?)\b`),
		Severity: 75,
		Label:    "prompt_extraction",
	},
	{
		Pattern:  regexp.MustCompile(`(?i)\b(reveal|show|repeat|print|display|output)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions?)\b`),
		Severity: 75,
		Label:    "prompt_extraction",
	},
	// Jailbreak keywords
	{
		Pattern:  regexp.MustCompile(`(?i)\b(dan\s+mode|developer\s+mode|jailbreak|jail\s*broken|bypass\s+(the\s+)?safety|without\s+(any\s+)?restrictions?)\b`),
		Severity: 85,
		Label:    "jailbreak",
	},
	// Bulk exfiltration
	{
		Pattern:  regexp.MustCompile(`(?i)\b(dump|export|extract)\s+(all|every|the\s+entire|the\s+whole)\b`),
		Severity: 75,
		Label:    "bulk_exfiltration",
	},
	{
		Pattern:  regexp.MustCompile(`(?i)\blist\s+all\s+(employees|salaries|users|customers|accounts|records)\b`),
		Severity: 75,
		Label:    "bulk_exfiltration",
	},
	// Encoding obfuscation
	{
		Pattern:  regexp.MustCompile(`[A-Za-z0-9+/]{60,}={0,2}`),
		Severity: 40,
		Label:    "base64_payload",
	},
	{
		Pattern:  regexp.MustCompile(`(\\x[0-9a-fA-F]{2}){4,}|(\\u[0-9a-fA-F]{4}){4,}`),
		Severity: 40,
		Label:    "escape_sequence_obfuscation",
	},
}

// documentRules is the narrower rule set for content the model is asked to
// summarize. It catches indirect injection embedded in retrieved data (a
// note field saying "ignore previous instructions") without penalizing the
// encodings and phrasing legitimate documents routinely contain.
var documentRules = []Rule{
	{
		Pattern:  regexp.MustCompile(`(?i)\b(ignore|disregard|forget)\s+(all\s+|any\s+|the\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|training|guidelines?)`),
		Severity: 80,
		Label:    "embedded_instruction_override",
	},
	{
		Pattern:  regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(a|an|the)\b`),
		Severity: 75,
		Label:    "embedded_role_reassignment",
	},
	{
		Pattern:  regexp.MustCompile(`(?i)\b(reveal|show|repeat|print)\s+(your|the)\s+(system\s+)?(prompt|instructions?)\b`),
		Severity: 75,
		Label:    "embedded_prompt_extraction",
	},
	{
		Pattern:  regexp.MustCompile(`(?i)\bwhen\s+summarizing\b.{0,40}\b(instead|actually|secretly)\b`),
		Severity: 70,
		Label:    "summarization_hijack",
	},
}
