package lifecycle

import (
	"encoding/json"
	"fmt"
)

// Status is the booking's position in its fulfillment lifecycle.
type Status string

const (
	StatusPending           Status = "pending"
	StatusDecoratorAssigned Status = "decorator assigned"
	StatusPlanning          Status = "planning phase"
	StatusMaterialPrepared  Status = "material prepared"
	StatusOnTheWay          Status = "on the way to venue"
	StatusSetupInProgress   Status = "setup in progress"
	StatusCompleted         Status = "completed"
)

var orderedStatuses = []Status{
	StatusPending,
	StatusDecoratorAssigned,
	StatusPlanning,
	StatusMaterialPrepared,
	StatusOnTheWay,
	StatusSetupInProgress,
	StatusCompleted,
}

// AllStatuses returns the forward path in order.
func AllStatuses() []Status {
	out := make([]Status, len(orderedStatuses))
	copy(out, orderedStatuses)
	return out
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Known reports whether s is one of the lifecycle states. Server records with
// an unexpected status still decode, they just never enable any control.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusDecoratorAssigned, StatusPlanning, StatusMaterialPrepared,
		StatusOnTheWay, StatusSetupInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Ordinal is the position on the forward path, -1 for unknown values.
func (s Status) Ordinal() int {
	for i, st := range orderedStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// Forward returns the next state on the forward path.
func (s Status) Forward() (Status, bool) {
	i := s.Ordinal()
	if i < 0 || i+1 >= len(orderedStatuses) {
		return "", false
	}
	return orderedStatuses[i+1], true
}

// Label is the human-readable form used in messages.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusDecoratorAssigned:
		return "Decorator assigned"
	case StatusPlanning:
		return "Planning phase"
	case StatusMaterialPrepared:
		return "Material prepared"
	case StatusOnTheWay:
		return "On the way to venue"
	case StatusSetupInProgress:
		return "Setup in progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

func (s Status) String() string { return string(s) }

// PaymentStatus is either unpaid or paid; only the payment gate flips it.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentUnpaid, PaymentPaid:
		return PaymentStatus(s), nil
	default:
		return "", fmt.Errorf("%w: payment status %q", ErrUnknownStatus, s)
	}
}

// UnmarshalJSON treats an empty or null payment status as unpaid. A field that
// is absent never reaches it; models.Booking covers that case.
func (p *PaymentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*p = PaymentUnpaid
		return nil
	}
	*p = PaymentStatus(raw)
	return nil
}

// ServiceType tells whether work happens at the studio or at the venue.
type ServiceType string

const (
	ServiceInStudio ServiceType = "in-studio"
	ServiceOnSite   ServiceType = "on-site"
)

func ParseServiceType(s string) (ServiceType, error) {
	switch ServiceType(s) {
	case ServiceInStudio, ServiceOnSite:
		return ServiceType(s), nil
	default:
		return "", fmt.Errorf("unknown service type %q", s)
	}
}

// Actor is the role issuing a transition.
type Actor string

const (
	ActorCustomer  Actor = "customer"
	ActorDecorator Actor = "decorator"
	ActorAdmin     Actor = "admin"
)

func ParseActor(s string) (Actor, error) {
	switch Actor(s) {
	case ActorCustomer, ActorDecorator, ActorAdmin:
		return Actor(s), nil
	case "":
		return ActorCustomer, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}
