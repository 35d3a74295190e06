package access

import "github.com/dmitrymomot/subsync/svc/billing"

// View is the screen a user is routed to.
type View string

const (
	ViewWelcome   View = "welcome"
	ViewPricing   View = "pricing"
	ViewDashboard View = "dashboard"
)

// DecideView routes anonymous users to the welcome screen, subscribers with
// an active or trialing subscription to the dashboard and everyone else to
// pricing.
func DecideView(user *billing.User, status billing.Status) View {
	switch {
	case user == nil:
		return ViewWelcome
	case status.GrantsAccess():
		return ViewDashboard
	default:
		return ViewPricing
	}
}

// Report is a status snapshot as served by GET /subscription-status.
type Report struct {
	Status         billing.Status `json:"status"`
	SubscriptionID string         `json:"subscriptionId,omitempty"`
	View           View           `json:"view"`
}

// NewReport builds the report for an authenticated user's profile.
func NewReport(user billing.User, p billing.Profile) Report {
	return Report{
		Status:         p.SubscriptionStatus,
		SubscriptionID: p.StripeSubscriptionID,
		View:           DecideView(&user, p.SubscriptionStatus),
	}
}
