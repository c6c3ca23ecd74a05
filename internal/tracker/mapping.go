package tracker

import "github.com/onpoint/ticket-bridge/internal/domain"

// Static mapping tables between local and tracker vocabularies. The type map
// is one-directional (local to tracker, used at issue creation); priority
// maps both ways so refreshes can adopt tracker-side priority changes; the
// status map goes tracker to local and falls back to the raw tracker name
// for statuses that have no local equivalent.

var issueTypeByTicketType = map[domain.TicketType]string{
	domain.TicketTypeBug:        "Bug",
	domain.TicketTypeRequest:    "Request",
	domain.TicketTypeAssistance: "Request",
}

var trackerPriorityByLocal = map[domain.TicketPriority]string{
	domain.TicketPriorityLow:      "Lowest",
	domain.TicketPriorityMedium:   "Medium",
	domain.TicketPriorityHigh:     "High",
	domain.TicketPriorityCritical: "Highest",
}

var localPriorityByTracker = map[string]domain.TicketPriority{
	"Lowest":  domain.TicketPriorityLow,
	"Low":     domain.TicketPriorityLow,
	"Medium":  domain.TicketPriorityMedium,
	"High":    domain.TicketPriorityHigh,
	"Highest": domain.TicketPriorityCritical,
}

var localStatusByTracker = map[string]domain.TicketStatus{
	"To Do":       domain.TicketStatusToDo,
	"In Progress": domain.TicketStatusTrackerDoing,
	"Done":        domain.TicketStatusTrackerDone,
	"Closed":      domain.TicketStatusTrackerClosed,
	"Resolved":    domain.TicketStatusResolved,
}

// IssueTypeFor maps a local ticket type to the tracker issue type.
func IssueTypeFor(t domain.TicketType) string {
	if mapped, ok := issueTypeByTicketType[t]; ok {
		return mapped
	}
	return "Request"
}

// PriorityFor maps a local priority to the tracker priority name.
func PriorityFor(p domain.TicketPriority) string {
	if mapped, ok := trackerPriorityByLocal[p]; ok {
		return mapped
	}
	return "Medium"
}

// PriorityFromTracker maps a tracker priority name back to the local
// vocabulary. Unknown names report ok=false and the caller keeps the local
// priority untouched.
func PriorityFromTracker(name string) (domain.TicketPriority, bool) {
	mapped, ok := localPriorityByTracker[name]
	return mapped, ok
}

// StatusFromTracker converts a tracker status name into the local status
// vocabulary. Unknown names are adopted verbatim: after transfer the tracker
// owns status progression and may introduce states this system has never
// seen.
func StatusFromTracker(name string) domain.TicketStatus {
	if mapped, ok := localStatusByTracker[name]; ok {
		return mapped
	}
	return domain.TicketStatus(name)
}
