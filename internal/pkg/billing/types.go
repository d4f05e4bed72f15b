package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// External event types handled by the reconciler.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is the outer envelope of a payment-processor webhook delivery.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified webhook payload. Callers must have checked
// the signature first.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("billing: decoding webhook payload: %w", err)
	}
	evt.ID = strings.TrimSpace(evt.ID)
	evt.Type = strings.TrimSpace(evt.Type)
	if evt.ID == "" {
		return nil, errors.New("billing: webhook payload missing event id")
	}
	if evt.Type == "" {
		return nil, errors.New("billing: webhook payload missing event type")
	}
	return &evt, nil
}

// CheckoutSession is the data object of a checkout-completed event.
type CheckoutSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// CheckoutSession decodes the event's data object as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, fmt.Errorf("billing: decoding checkout session: %w", err)
	}
	if strings.TrimSpace(session.Customer) == "" {
		return nil, errors.New("billing: checkout session missing customer id")
	}
	return &session, nil
}

// SubscriptionObject is the data object of subscription lifecycle events,
// and also the shape returned by the processor's subscription-retrieval
// endpoint.
type SubscriptionObject struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PriceID returns the first item's price id, or "".
func (s *SubscriptionObject) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return strings.TrimSpace(s.Items.Data[0].Price.ID)
}

// Subscription decodes the event's data object as a subscription.
func (e *Event) Subscription() (*SubscriptionObject, error) {
	var sub SubscriptionObject
	if err := json.Unmarshal(e.Data.Object, &sub); err != nil {
		return nil, fmt.Errorf("billing: decoding subscription object: %w", err)
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, errors.New("billing: subscription object missing id")
	}
	return &sub, nil
}
