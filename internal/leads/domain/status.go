package domain

// Status is a lead's pipeline stage.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusNegotiating Status = "negotiating"
	StatusWon         Status = "won"
	StatusLost        Status = "lost"
)

// Contact lifecycle values derived from the pipeline status.
const (
	ContactStatusLead         = "lead"
	ContactStatusContacted    = "contacted"
	ContactStatusActiveClient = "active_client"
	ContactStatusPastClient   = "past_client"
)

// statusToContact is the canonical pipeline-to-lifecycle mapping. Every
// pipeline value has exactly one lifecycle value.
var statusToContact = map[Status]string{
	StatusNew:         ContactStatusLead,
	StatusContacted:   ContactStatusContacted,
	StatusQualified:   ContactStatusContacted,
	StatusNegotiating: ContactStatusContacted,
	StatusWon:         ContactStatusActiveClient,
	StatusLost:        ContactStatusPastClient,
}

// ValidStatus reports whether s is a known pipeline stage.
func ValidStatus(s Status) bool {
	_, ok := statusToContact[s]
	return ok
}

// ContactStatusFor returns the contact lifecycle value implied by a pipeline
// status. The second return is false for unknown statuses.
func ContactStatusFor(s Status) (string, bool) {
	cs, ok := statusToContact[s]
	return cs, ok
}

// ConversionActivity returns the audit-trail description written when a lead
// converts. Only the terminal stages produce one.
func ConversionActivity(s Status) (string, bool) {
	switch s {
	case StatusWon:
		return "Lead converted to Active Client - Won", true
	case StatusLost:
		return "Lead converted to Past Client - Lost", true
	default:
		return "", false
	}
}

// Statuses lists every pipeline stage in pipeline order.
func Statuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusQualified, StatusNegotiating, StatusWon, StatusLost}
}
