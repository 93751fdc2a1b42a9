package record

import "testing"

func TestSeverityOrdering(t *testing.T) {
	if !(SeverityNone < SeverityMild && SeverityMild < SeverityModerate && SeverityModerate < SeveritySevere) {
		t.Fatal("severity scale must be ordered none < mild < moderate < severe")
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityNone, "none"},
		{SeverityMild, "mild"},
		{SeverityModerate, "moderate"},
		{SeveritySevere, "severe"},
		{Severity(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.want {
			t.Fatalf("Severity(%d).String() = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestNormalizeSeverityLabel(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Severity
		wantOK bool
	}{
		{name: "short none", input: "NONE", want: SeverityNone, wantOK: true},
		{name: "lowercase mild", input: "mild", want: SeverityMild, wantOK: true},
		{name: "prefixed moderate", input: "REACTION_SEVERITY_MODERATE", want: SeverityModerate, wantOK: true},
		{name: "trimmed severe", input: " severe ", want: SeveritySevere, wantOK: true},
		{name: "empty string", input: ""},
		{name: "unknown value", input: "CRITICAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeSeverityLabel(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverityValid(t *testing.T) {
	for s := SeverityNone; s <= SeveritySevere; s++ {
		if !s.Valid() {
			t.Fatalf("expected severity %v to be valid", s)
		}
	}
	if Severity(-1).Valid() || Severity(4).Valid() {
		t.Fatal("out-of-scale severities must be invalid")
	}
}

func TestRequiresFollowUp(t *testing.T) {
	if (Record{ReactionSeverity: SeverityNone}).RequiresFollowUp() {
		t.Fatal("severity none should not require follow-up")
	}
	for _, s := range []Severity{SeverityMild, SeverityModerate, SeveritySevere} {
		if !(Record{ReactionSeverity: s}).RequiresFollowUp() {
			t.Fatalf("severity %v should require follow-up", s)
		}
	}
}
