package service

import "testing"

func ptrI(v int64) *int64 { return &v }

func TestPostcodeDistrict(t *testing.T) {
	tests := []struct {
		postcode string
		expected string
	}{
		{"SW1A 1AA", "SW1A"},
		{"m1 1aa", "M1"},
		{"EC2V7HN", "EC2V"},
		{"SW1", "SW1"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := postcodeDistrict(tt.postcode); got != tt.expected {
			t.Errorf("postcodeDistrict(%q) = %q, want %q", tt.postcode, got, tt.expected)
		}
	}
}

func TestBudgetBand(t *testing.T) {
	tests := []struct {
		name     string
		min, max *int64
		expected string
	}{
		{"no budget", nil, nil, "unspecified"},
		{"small job", ptrI(10000), ptrI(20000), "under £250"},
		{"first band", ptrI(30000), ptrI(40000), "£250-£500"},
		{"mid band from single figure", ptrI(70000), nil, "£500-£1000"},
		{"large band", nil, ptrI(300000), "£2500-£5000"},
		{"over the top band", ptrI(900000), ptrI(1100000), "over £5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := budgetBand(tt.min, tt.max); got != tt.expected {
				t.Errorf("budgetBand() = %q, want %q", got, tt.expected)
			}
		})
	}
}
