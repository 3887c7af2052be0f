package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Mode{Advanced, Vector, Prefetch, Scroll}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", "hybrid", "semantic", "SCROLL"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestSelect_Priority(t *testing.T) {
	tests := []struct {
		name                     string
		queryDSL, text, prefetch bool
		want                     Mode
	}{
		{"all set", true, true, true, Advanced},
		{"text and prefetch", false, true, true, Vector},
		{"prefetch only", false, false, true, Prefetch},
		{"nothing", false, false, false, Scroll},
		{"dsl only", true, false, false, Advanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.queryDSL, tt.text, tt.prefetch); got != tt.want {
				t.Errorf("Select() = %q, want %q", got, tt.want)
			}
		})
	}
}
