// Package entitlement derives a coarse plan view from billing-provider
// subscription state. The view is recomputed on demand and never treated as
// the source of truth.
package entitlement

// Plan labels exposed to clients.
const (
	PlanNone = "none"
	PlanPro  = "pro"
)

// Absent marks the lack of any subscription record.
const Absent = ""

// View is the derived plan/active pair for one caller.
type View struct {
	Plan   string `json:"plan"`
	Active bool   `json:"active"`
}

// activeStatuses are the provider statuses that keep a subscription usable.
// past_due stays active so a failed renewal does not cut access immediately.
var activeStatuses = map[string]bool{
	"trialing": true,
	"active":   true,
	"past_due": true,
}

// Classify maps a billing-provider subscription status to an entitlement
// view. Unknown statuses and Absent classify as inactive.
func Classify(status string) View {
	if activeStatuses[status] {
		return View{Plan: PlanPro, Active: true}
	}
	return View{Plan: PlanNone, Active: false}
}
