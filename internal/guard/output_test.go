package guard

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestValidateOutputGuardrailLeak(t *testing.T) {
	g := NewGuard(Limits{})

	got := g.ValidateOutput("Sure! My rules say: You are an enterprise assistant governed by strict policies.", nil)

	if got.IsValid {
		t.Error("IsValid = true, want false")
	}
	if got.Output != FilteredResponse {
		t.Errorf("Output = %q, want the fixed filtered response", got.Output)
	}
	if !containsFlag(got.Flags, "guardrail_leak") {
		t.Errorf("flags = %v, want to contain guardrail_leak", got.Flags)
	}
}

func TestValidateOutputPIIRedaction(t *testing.T) {
	g := NewGuard(Limits{})

	tests := []struct {
		name       string
		text       string
		roles      []string
		wantOutput string
		wantFlag   string
	}{
		{
			name:       "ssn redacted without full PII role",
			text:       "The SSN on file is 123-45-6789.",
			roles:      []string{"hr-read"},
			wantOutput: "The SSN on file is [REDACTED].",
			wantFlag:   "ssn_redacted",
		},
		{
			name:       "card redacted without full PII role",
			text:       "Card: 4111 1111 1111 1111",
			roles:      nil,
			wantOutput: "Card: [REDACTED]",
			wantFlag:   "card_redacted",
		},
		{
			name:       "ssn preserved with full PII role",
			text:       "The SSN on file is 123-45-6789.",
			roles:      []string{"hr-read", FullPIIRole},
			wantOutput: "The SSN on file is 123-45-6789.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.ValidateOutput(tt.text, tt.roles)
			if !got.IsValid {
				t.Error("IsValid = false, want true")
			}
			if got.Output != tt.wantOutput {
				t.Errorf("Output = %q, want %q", got.Output, tt.wantOutput)
			}
			if tt.wantFlag != "" && !containsFlag(got.Flags, tt.wantFlag) {
				t.Errorf("flags = %v, want to contain %q", got.Flags, tt.wantFlag)
			}
		})
	}
}

func TestValidateOutputEmailExempt(t *testing.T) {
	g := NewGuard(Limits{})

	// Emails are deliberately not auto-redacted in this channel.
	text := "You can reach Jordan at jordan@example.com."
	got := g.ValidateOutput(text, nil)

	if got.Output != text {
		t.Errorf("Output = %q, want unchanged", got.Output)
	}
}

func TestValidateOutputTruncation(t *testing.T) {
	g := NewGuard(Limits{MaxOutputLength: 50})

	got := g.ValidateOutput(strings.Repeat("x", 80), nil)

	if !strings.HasSuffix(got.Output, truncationNotice) {
		t.Errorf("Output = %q, want truncation notice suffix", got.Output)
	}
	if len(got.Output) != 50+len(truncationNotice) {
		t.Errorf("len(Output) = %d, want %d", len(got.Output), 50+len(truncationNotice))
	}
	if !containsFlag(got.Flags, "output_truncated") {
		t.Errorf("flags = %v, want to contain output_truncated", got.Flags)
	}
}

func TestValidateOutputTruncationRuneBoundary(t *testing.T) {
	g := NewGuard(Limits{MaxOutputLength: 10})

	got := g.ValidateOutput(strings.Repeat("ü", 25), nil)

	if !utf8.ValidString(got.Output) {
		t.Errorf("Output = %q, want valid UTF-8", got.Output)
	}
	if !strings.HasSuffix(got.Output, truncationNotice) {
		t.Fatalf("Output = %q, want truncation notice suffix", got.Output)
	}
	body := strings.TrimSuffix(got.Output, truncationNotice)
	if n := utf8.RuneCountInString(body); n != 10 {
		t.Errorf("rune count = %d, want 10", n)
	}

	// 10 characters in 20 bytes stays untouched.
	got = g.ValidateOutput(strings.Repeat("ü", 10), nil)
	if containsFlag(got.Flags, "output_truncated") {
		t.Errorf("flags = %v, want no truncation flag", got.Flags)
	}
}
