// Package notify builds admin alert payloads. Builders are pure functions
// with no I/O so they stay testable in isolation from the messaging
// transport.
package notify

import "fmt"

// Action id prefixes. An interaction callback splits the id on ':' to
// recover the guest without re-querying any state.
const (
	ActionLogDeactivation = "log_deactivation"
	ActionIgnoreGuest     = "ignore_guest"
)

type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Button struct {
	Type     string     `json:"type"`
	Text     TextObject `json:"text"`
	ActionID string     `json:"action_id"`
	Value    string     `json:"value"`
	Style    string     `json:"style,omitempty"`
}

type Block struct {
	Type     string      `json:"type"`
	Text     *TextObject `json:"text,omitempty"`
	Elements []Button    `json:"elements,omitempty"`
}

// Message is a structured direct-message payload.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// BuildGuestAlert constructs the inactive-guest alert with two mutually
// exclusive affordances: log a deactivation intent, or ignore the guest.
// Both action ids embed the guest id so they are stable and predictable.
func BuildGuestAlert(guestID string, monthlyCostCents int64) Message {
	text := fmt.Sprintf(
		"Guest account `%s` looks inactive and costs an estimated $%.2f/month ($%.2f/year).",
		guestID,
		float64(monthlyCostCents)/100,
		float64(monthlyCostCents*12)/100,
	)

	return Message{
		Text: text,
		Blocks: []Block{
			{
				Type: "section",
				Text: &TextObject{Type: "mrkdwn", Text: text},
			},
			{
				Type: "actions",
				Elements: []Button{
					{
						Type:     "button",
						Text:     TextObject{Type: "plain_text", Text: "Log deactivation intent"},
						ActionID: fmt.Sprintf("%s:%s", ActionLogDeactivation, guestID),
						Value:    guestID,
						Style:    "primary",
					},
					{
						Type:     "button",
						Text:     TextObject{Type: "plain_text", Text: "Ignore"},
						ActionID: fmt.Sprintf("%s:%s", ActionIgnoreGuest, guestID),
						Value:    guestID,
					},
				},
			},
		},
	}
}
