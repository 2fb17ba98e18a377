package band

import "testing"

func i64(v int64) *int64 { return &v }

func TestParseCanonicalLabels(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  Range
	}{
		{"closed range millions", "AED1M – AED2M", Range{Min: i64(1_000_000), Max: i64(2_000_000), Known: true}},
		{"closed range thousands", "AED500K - AED800K", Range{Min: i64(500_000), Max: i64(800_000), Known: true}},
		{"above is open high", "Above AED15M", Range{Min: i64(15_000_000), Known: true}},
		{"under is open low", "Under AED100K", Range{Max: i64(100_000), Known: true}},
		{"below is open low", "Below AED50K", Range{Max: i64(50_000), Known: true}},
		{"single bound open-ended", "AED2M", Range{Min: i64(2_000_000), Known: true}},
		{"fractional", "AED1.5M – AED2.5M", Range{Min: i64(1_500_000), Max: i64(2_500_000), Known: true}},
		{"unrecognized", "call for price", Unknown},
		{"empty", "", Unknown},
		{"whitespace", "   ", Unknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.label)
			if got.Known != tc.want.Known {
				t.Fatalf("Parse(%q).Known = %v, want %v", tc.label, got.Known, tc.want.Known)
			}
			assertBound(t, "Min", got.Min, tc.want.Min)
			assertBound(t, "Max", got.Max, tc.want.Max)
		})
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{"AED", "M", "– –", "1234567890123", "AEDKM", "Above", "Under the sea"}
	for _, in := range inputs {
		_ = Parse(in)
	}
}

func assertBound(t *testing.T, field string, got, want *int64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Fatalf("%s = %v, want %v", field, deref(got), deref(want))
	case *got != *want:
		t.Fatalf("%s = %d, want %d", field, *got, *want)
	}
}

func deref(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
