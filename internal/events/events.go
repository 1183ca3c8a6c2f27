package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingUpdated       = "booking_updated"
	EventBookingCanceled      = "booking_canceled"
	EventBookingStatusChanged = "booking_status_changed"
	EventDecoratorAssigned    = "decorator_assigned"
	EventPaymentConfirmed     = "payment_confirmed"
)

// AllTypes lists every event the client emits.
func AllTypes() []string {
	return []string{
		EventBookingCreated,
		EventBookingUpdated,
		EventBookingCanceled,
		EventBookingStatusChanged,
		EventDecoratorAssigned,
		EventPaymentConfirmed,
	}
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID      string `json:"booking_id"`
	ServiceName    string `json:"service_name"`
	CustomerEmail  string `json:"customer_email"`
	DecoratorEmail string `json:"decorator_email,omitempty"`
	DecoratorName  string `json:"decorator_name,omitempty"`
	From           string `json:"from,omitempty"`
	Status         string `json:"status"`
	Action         string `json:"action,omitempty"`
	PaymentStatus  string `json:"payment_status,omitempty"`
	Date           string `json:"date,omitempty"`
	Time           string `json:"time,omitempty"`
	ChangedBy      string `json:"changed_by,omitempty"`
	ChangedByEmail string `json:"changed_by_email,omitempty"`
	// ChatID is the chat that triggered the change, 0 when it came from the watcher.
	ChatID        int64  `json:"chat_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	TrackingID    string `json:"tracking_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into a BookingEventPayload.
func (e *Event) Decode() (BookingEventPayload, error) {
	var p BookingEventPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     func(event *Event, err error)
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError installs a hook for handler failures. Without it errors are dropped.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
