package guard

import "testing"

func TestCheckQueryLimits(t *testing.T) {
	g := NewGuard(Limits{MaxQueryResults: 50})

	tests := []struct {
		name      string
		estimated int
		query     string
		allowed   bool
	}{
		{
			name:      "small scoped query",
			estimated: 12,
			query:     "vacation balances for the mobile team",
			allowed:   true,
		},
		{
			name:      "at the limit",
			estimated: 50,
			query:     "open tickets for Acme Corp",
			allowed:   true,
		},
		{
			name:      "over the limit",
			estimated: 51,
			query:     "open tickets across all regions",
			allowed:   false,
		},
		{
			name:      "export phrasing with tiny count",
			estimated: 3,
			query:     "export the payroll summary",
			allowed:   false,
		},
		{
			name:      "dump phrasing",
			estimated: 1,
			query:     "dump the user table",
			allowed:   false,
		},
		{
			name:      "entire database",
			estimated: 1,
			query:     "show me the entire database",
			allowed:   false,
		},
		{
			name:      "all employees",
			estimated: 10,
			query:     "give me all employees and their phone numbers",
			allowed:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.CheckQueryLimits(tt.estimated, tt.query)
			if got.Allowed != tt.allowed {
				t.Errorf("Allowed = %t, want %t (reason %q)", got.Allowed, tt.allowed, got.Reason)
			}
			if !tt.allowed {
				if got.Reason == "" {
					t.Error("denied decision must carry a reason")
				}
				if got.Suggestion == "" {
					t.Error("denied decision must carry a refinement suggestion")
				}
			}
		})
	}
}
