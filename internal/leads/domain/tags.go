package domain

// Interest tags describing the roles a person plays in the market.
const (
	TagBuyer    = "Buyer"
	TagSeller   = "Seller"
	TagLandlord = "Landlord"
	TagTenant   = "Tenant"
	TagInvestor = "Investor"
)

// OwnerTagForOfferType returns the interest tag implied by owning a listing
// of the given offer type: a sale listing makes the owner a Seller, a rent
// listing a Landlord. Unknown offer types yield no tag.
func OwnerTagForOfferType(offerType string) (string, bool) {
	switch offerType {
	case "sale":
		return TagSeller, true
	case "rent":
		return TagLandlord, true
	default:
		return "", false
	}
}
