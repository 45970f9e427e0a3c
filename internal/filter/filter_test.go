package filter

import "testing"

func TestKeywordFilter_Evaluate(t *testing.T) {
	tests := []struct {
		name  string
		allow []string
		block []string
		text  string
		want  Decision
	}{
		{"no lists pass all", nil, nil, "Anything at all", Pass},
		{"allow match case-insensitive", []string{"Golang"}, nil, "Senior GOLANG engineer", Pass},
		{"allow miss", []string{"golang", "rust"}, nil, "Java developer", NotAllowed},
		{"block wins over allow", []string{"engineer"}, []string{"unpaid"}, "Unpaid engineer internship", Blocked},
		{"block without allow", nil, []string{"crypto"}, "Crypto trader", Blocked},
		{"blank keywords ignored", []string{"  ", ""}, []string{""}, "Backend engineer", Pass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewKeywordFilter(tt.allow, tt.block)
			if got := f.Evaluate(tt.text); got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
