// Package mask transforms data records destined for the model by applying
// per-field masking strategies, so raw PII never reaches model context
// unless explicitly entitled.
package mask

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Redacted replaces values that must not reach the model at all.
const Redacted = "[REDACTED]"

// DefaultSalaryIncrement is the band width for salary range masking.
const DefaultSalaryIncrement = 10000

// PII shapes used by the defensive fallback scan on unmatched fields.
var (
	ssnShape  = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardShape = regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)
)

// fieldRule pairs a case-insensitive field name fragment with its masking
// function. Rules are evaluated in order; first match wins.
type fieldRule struct {
	fragment string
	mask     func(m *Masker, value any) any
}

// rules is the static masking table. More specific fragments sit above
// broader ones so evaluation order stays explicit.
var rules = []fieldRule{
	{"ssn", (*Masker).maskSSN},
	{"social_security", (*Masker).maskSSN},
	{"credit_card", maskFull},
	{"password", maskFull},
	{"bank_account", maskFull},
	{"routing_number", maskFull},
	{"tax_id", maskHash},
	{"salary", (*Masker).maskSalaryBand},
	{"compensation", (*Masker).maskSalaryBand},
	{"email", maskEmail},
	{"phone", maskPhone},
}

// Masker applies the masking table to fields and records. Stateless apart
// from configuration; safe for concurrent use.
type Masker struct {
	salaryIncrement int
}

// New creates a Masker. A non-positive increment uses DefaultSalaryIncrement.
func New(salaryIncrement int) *Masker {
	if salaryIncrement <= 0 {
		salaryIncrement = DefaultSalaryIncrement
	}
	return &Masker{salaryIncrement: salaryIncrement}
}

// Field masks a single value according to the rule matching its field name.
// Unmatched fields pass through unless the value itself is SSN- or
// card-shaped, in which case it is redacted defensively.
func (m *Masker) Field(fieldName string, value any) any {
	name := strings.ToLower(fieldName)
	for _, rule := range rules {
		if strings.Contains(name, rule.fragment) {
			return rule.mask(m, value)
		}
	}

	if s, ok := value.(string); ok {
		if ssnShape.MatchString(s) || cardShape.MatchString(s) {
			return Redacted
		}
	}
	return value
}

// Record masks every field of a flat record, returning a new map.
func (m *Masker) Record(record map[string]any) map[string]any {
	masked := make(map[string]any, len(record))
	for key, value := range record {
		masked[key] = m.Field(key, value)
	}
	return masked
}

// maskSSN shows exactly the last four characters of the value and nothing
// else of the original digits.
func (m *Masker) maskSSN(value any) any {
	s := asString(value)
	if len(s) < 4 {
		return Redacted
	}
	return "***-**-" + s[len(s)-4:]
}

// maskSalaryBand rounds the amount down to the configured increment and
// renders a band, e.g. 125000 -> "$120,000-$130,000".
func (m *Masker) maskSalaryBand(value any) any {
	amount, ok := asInt(value)
	if !ok {
		// Ambiguity defaults to the safer outcome.
		return Redacted
	}

	low := (amount / m.salaryIncrement) * m.salaryIncrement
	high := low + m.salaryIncrement
	return fmt.Sprintf("$%s-$%s", formatThousands(low), formatThousands(high))
}

func maskFull(_ *Masker, _ any) any {
	return Redacted
}

// maskHash replaces the value with a short SHA-256 digest, keeping the field
// correlatable without revealing it.
func maskHash(_ *Masker, value any) any {
	sum := sha256.Sum256([]byte(asString(value)))
	return "sha256:" + hex.EncodeToString(sum[:])[:12]
}

// maskEmail shows the first character and the literal domain.
func maskEmail(_ *Masker, value any) any {
	s := asString(value)
	at := strings.Index(s, "@")
	if at < 1 {
		return Redacted
	}
	return s[:1] + "***@" + s[at+1:]
}

// maskPhone keeps the last four digits visible.
func maskPhone(_ *Masker, value any) any {
	s := asString(value)
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) < 4 {
		return Redacted
	}
	return "***-***-" + string(digits[len(digits)-4:])
}

func asString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// formatThousands renders a non-negative integer with comma separators.
func formatThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
