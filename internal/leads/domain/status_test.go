package domain

import "testing"

func TestContactStatusMappingIsTotal(t *testing.T) {
	want := map[Status]string{
		StatusNew:         ContactStatusLead,
		StatusContacted:   ContactStatusContacted,
		StatusQualified:   ContactStatusContacted,
		StatusNegotiating: ContactStatusContacted,
		StatusWon:         ContactStatusActiveClient,
		StatusLost:        ContactStatusPastClient,
	}

	for _, s := range Statuses() {
		got, ok := ContactStatusFor(s)
		if !ok {
			t.Fatalf("ContactStatusFor(%q) not defined", s)
		}
		if got != want[s] {
			t.Fatalf("ContactStatusFor(%q) = %q, want %q", s, got, want[s])
		}
	}
}

func TestContactStatusForUnknown(t *testing.T) {
	if _, ok := ContactStatusFor(Status("archived")); ok {
		t.Fatal("unknown status should not map")
	}
	if ValidStatus("archived") {
		t.Fatal("archived is not a valid status")
	}
}

func TestConversionActivity(t *testing.T) {
	desc, ok := ConversionActivity(StatusWon)
	if !ok || desc != "Lead converted to Active Client - Won" {
		t.Fatalf("won conversion = %q, %v", desc, ok)
	}

	desc, ok = ConversionActivity(StatusLost)
	if !ok || desc != "Lead converted to Past Client - Lost" {
		t.Fatalf("lost conversion = %q, %v", desc, ok)
	}

	for _, s := range []Status{StatusNew, StatusContacted, StatusQualified, StatusNegotiating} {
		if _, ok := ConversionActivity(s); ok {
			t.Fatalf("status %q should not produce a conversion activity", s)
		}
	}
}

func TestOwnerTagForOfferType(t *testing.T) {
	if tag, ok := OwnerTagForOfferType("sale"); !ok || tag != TagSeller {
		t.Fatalf("sale owner tag = %q, %v", tag, ok)
	}
	if tag, ok := OwnerTagForOfferType("rent"); !ok || tag != TagLandlord {
		t.Fatalf("rent owner tag = %q, %v", tag, ok)
	}
	if _, ok := OwnerTagForOfferType("lease_to_own"); ok {
		t.Fatal("unknown offer type should yield no tag")
	}
}

func TestHasTag(t *testing.T) {
	l := Lead{InterestTags: []string{TagBuyer, TagSeller}}
	if !l.HasTag(TagSeller) {
		t.Fatal("expected Seller tag")
	}
	if l.HasTag(TagTenant) {
		t.Fatal("unexpected Tenant tag")
	}
}
