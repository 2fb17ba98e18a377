package contacts

import (
	"testing"

	"github.com/google/uuid"
)

func strp(s string) *string { return &s }

func TestDeriveUpsertStatusEffective(t *testing.T) {
	tests := []struct {
		leadStatus string
		want       string
	}{
		{"new", StatusActive},
		{"contacted", StatusActive},
		{"qualified", StatusActive},
		{"negotiating", StatusActive},
		{"won", StatusActive},
		{"lost", StatusPast},
	}

	for _, tc := range tests {
		t.Run(tc.leadStatus, func(t *testing.T) {
			p := deriveUpsert(LeadSnapshot{ID: uuid.New(), AgentID: uuid.New(), Status: tc.leadStatus})
			if p.StatusEffective != tc.want {
				t.Fatalf("status %q: StatusEffective = %q, want %q", tc.leadStatus, p.StatusEffective, tc.want)
			}
		})
	}
}

func TestDeriveUpsertBudgetFromSaleBand(t *testing.T) {
	p := deriveUpsert(LeadSnapshot{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		Status:         "new",
		SaleBudgetBand: "AED1M – AED2M",
	})

	if p.BudgetMin == nil || *p.BudgetMin != 1_000_000 {
		t.Fatalf("BudgetMin = %v, want 1000000", p.BudgetMin)
	}
	if p.BudgetMax == nil || *p.BudgetMax != 2_000_000 {
		t.Fatalf("BudgetMax = %v, want 2000000", p.BudgetMax)
	}
	if p.BuyerPreferences == nil || p.BuyerPreferences.BudgetBand != "AED1M – AED2M" {
		t.Fatalf("BuyerPreferences = %+v", p.BuyerPreferences)
	}
	if p.TenantPreferences != nil {
		t.Fatalf("TenantPreferences should be nil without a rent band")
	}
}

func TestDeriveUpsertFallsBackToRentBand(t *testing.T) {
	p := deriveUpsert(LeadSnapshot{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		Status:         "contacted",
		SaleBudgetBand: "no idea",
		RentBudgetBand: "Under AED100K",
	})

	if p.BudgetMin != nil {
		t.Fatalf("BudgetMin = %v, want nil", *p.BudgetMin)
	}
	if p.BudgetMax == nil || *p.BudgetMax != 100_000 {
		t.Fatalf("BudgetMax = %v, want 100000", p.BudgetMax)
	}
}

func TestDeriveUpsertUnrecognizedBandsLeaveBoundsNull(t *testing.T) {
	p := deriveUpsert(LeadSnapshot{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		Status:         "new",
		SaleBudgetBand: "call for price",
	})

	if p.BudgetMin != nil || p.BudgetMax != nil {
		t.Fatalf("bounds should be nil for unrecognized bands, got min=%v max=%v", p.BudgetMin, p.BudgetMax)
	}
}

func TestDeriveUpsertIsDeterministic(t *testing.T) {
	snap := LeadSnapshot{
		ID:             uuid.New(),
		AgentID:        uuid.New(),
		Name:           "Amira H",
		Email:          strp("amira@example.com"),
		Status:         "qualified",
		ContactStatus:  "active_client",
		Segment:        "residential",
		Bedrooms:       func() *int { v := 3; return &v }(),
		SaleBudgetBand: "AED2M – AED3M",
	}

	a := deriveUpsert(snap)
	b := deriveUpsert(snap)

	if *a.BudgetMin != *b.BudgetMin || *a.BudgetMax != *b.BudgetMax ||
		a.StatusEffective != b.StatusEffective || a.ContactStatus != b.ContactStatus {
		t.Fatalf("deriveUpsert not deterministic: %+v vs %+v", a, b)
	}
}
