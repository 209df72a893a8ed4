// Package lifecycle derives UI affordances from an order's status. It is a
// pure view model: transitions themselves happen in the orders backend, and
// callers re-fetch before rederiving, so nothing here can become stale.
package lifecycle

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusPendingPayment Status = "pending_payment"
)

// Action is the single staff affordance available from a status.
type Action struct {
	Next  Status `json:"nextStatus"`
	Label string `json:"label"`
}

var transitions = map[Status]Action{
	StatusPending:   {Next: StatusConfirmed, Label: "Accept Order"},
	StatusConfirmed: {Next: StatusPreparing, Label: "Start Preparing"},
	StatusPreparing: {Next: StatusReady, Label: "Mark as Ready"},
	StatusReady:     {Next: StatusDelivered, Label: "Mark as Delivered"},
}

// NextAction returns the staff action for a status. Terminal and unrecognized
// statuses, including pending_payment, have none.
func NextAction(s Status) (Action, bool) {
	action, ok := transitions[s]
	return action, ok
}

var active = map[Status]bool{
	StatusPending:        true,
	StatusConfirmed:      true,
	StatusPreparing:      true,
	StatusReady:          true,
	StatusPendingPayment: true,
}

// IsActive reports whether the order still blocks a new checkout and renders
// under the Active section. Unknown statuses are inactive.
func IsActive(s Status) bool {
	return active[s]
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Style is the display treatment for a status, consolidated into one table
// instead of per-page lookups.
type Style struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var styles = map[Status]Style{
	StatusPending:        {Label: "Pending", Color: "#f59e0b", Icon: "clock"},
	StatusConfirmed:      {Label: "Confirmed", Color: "#3b82f6", Icon: "check-circle"},
	StatusPreparing:      {Label: "Preparing", Color: "#8b5cf6", Icon: "flame"},
	StatusReady:          {Label: "Ready", Color: "#10b981", Icon: "bell"},
	StatusDelivered:      {Label: "Delivered", Color: "#6b7280", Icon: "package-check"},
	StatusCancelled:      {Label: "Cancelled", Color: "#ef4444", Icon: "x-circle"},
	StatusPendingPayment: {Label: "Awaiting Payment", Color: "#f59e0b", Icon: "credit-card"},
}

var defaultStyle = Style{Label: "Unknown", Color: "#9ca3af", Icon: "help-circle"}

func StyleFor(s Status) Style {
	if style, ok := styles[s]; ok {
		return style
	}
	return defaultStyle
}
