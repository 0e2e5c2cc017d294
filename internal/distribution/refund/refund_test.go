package refund

import (
	"testing"

	"tradematch_backend/platform/apperr"
)

type testPolicy struct {
	percentages map[string]float64
}

func (p testPolicy) GetRefundPercentages() map[string]float64 { return p.percentages }

func defaultTable() testPolicy {
	return testPolicy{percentages: map[string]float64{
		"customer_unresponsive": 1.00,
		"invalid_contact":       1.00,
		"duplicate_lead":        1.00,
		"job_cancelled":         0.50,
		"customer_dispute":      0.75,
		"poor_quality":          0.50,
	}}
}

func TestComputeByReasonCode(t *testing.T) {
	policy := New(defaultTable())

	tests := []struct {
		reason   string
		charge   int64
		expected int64
	}{
		{"customer_unresponsive", 1000, 1000},
		{"invalid_contact", 1000, 1000},
		{"duplicate_lead", 750, 750},
		{"job_cancelled", 1000, 500},
		{"customer_dispute", 1000, 750},
		{"poor_quality", 750, 375},
		{"job_cancelled", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			got, err := policy.Compute(tt.reason, tt.charge)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Compute(%q, %d) = %d, want %d", tt.reason, tt.charge, got, tt.expected)
			}
		})
	}
}

func TestComputeUnknownReason(t *testing.T) {
	policy := New(defaultTable())

	_, err := policy.Compute("felt_like_it", 1000)
	if err == nil {
		t.Fatal("Compute() with unknown reason expected error")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Compute() error kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestComputeNeverExceedsCharge(t *testing.T) {
	policy := New(testPolicy{percentages: map[string]float64{"generous": 1.50}})

	got, err := policy.Compute("generous", 1000)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got != 1000 {
		t.Errorf("Compute() = %d, want capped at 1000", got)
	}
}

func TestReasonsSorted(t *testing.T) {
	policy := New(defaultTable())

	reasons := policy.Reasons()
	if len(reasons) != 6 {
		t.Fatalf("Reasons() returned %d codes, want 6", len(reasons))
	}
	for i := 1; i < len(reasons); i++ {
		if reasons[i-1] >= reasons[i] {
			t.Errorf("Reasons() not sorted at %d: %q >= %q", i, reasons[i-1], reasons[i])
		}
	}
}
