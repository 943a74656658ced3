package guard

// DocumentScan is the result of scanning retrieved content for indirect
// injection before the model summarizes it.
type DocumentScan struct {
	// Suspicious is true when any embedded-injection rule matched.
	Suspicious bool
	// Flags lists the matched rule labels in evaluation order.
	Flags []string
	// RiskScore accumulates matched rule severities, capped at MaxRiskScore.
	RiskScore int
}

// ScanDocument applies the embedded-injection rule set to content the model
// is asked to summarize. This defends against second-order injection: an
// adversarial instruction planted in a note field or ticket body rather
// than in the user's own prompt.
func (g *Guard) ScanDocument(content string) DocumentScan {
	score := 0
	var flags []string

	for _, rule := range documentRules {
		if rule.Pattern.MatchString(content) {
			score += rule.Severity
			flags = append(flags, rule.Label)
		}
	}

	if score > MaxRiskScore {
		score = MaxRiskScore
	}

	return DocumentScan{
		Suspicious: len(flags) > 0,
		Flags:      flags,
		RiskScore:  score,
	}
}
