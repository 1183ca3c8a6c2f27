package models

import (
	"encoding/json"
	"time"

	"decorbook/internal/lifecycle"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID              string                  `json:"_id,omitempty"`
	ServiceID       string                  `json:"serviceId"`
	ServiceName     string                  `json:"serviceName"`
	ServiceCategory string                  `json:"serviceCategory"`
	TotalCost       decimal.Decimal         `json:"totalCost"`
	TotalUnit       int                     `json:"totalUnit"`
	CustomerEmail   string                  `json:"customerEmail"`
	CustomerName    string                  `json:"customerName,omitempty"`
	ServiceType     lifecycle.ServiceType   `json:"serviceType"`
	Location        string                  `json:"location,omitempty"`
	Date            string                  `json:"date"` // YYYY-MM-DD
	Time            string                  `json:"time"` // HH:MM
	PaymentStatus   lifecycle.PaymentStatus `json:"paymentStatus"`
	Status          lifecycle.Status        `json:"status"`
	DecoratorID     string                  `json:"decoratorId,omitempty"`
	DecoratorName   string                  `json:"decoratorName,omitempty"`
	DecoratorEmail  string                  `json:"decoratorEmail,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	TransactionID   string                  `json:"transactionId,omitempty"`
	TrackingID      string                  `json:"trackingId,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
}

// UnmarshalJSON reads a booking without a paymentStatus as unpaid.
func (b *Booking) UnmarshalJSON(data []byte) error {
	type plain Booking
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.PaymentStatus == "" {
		raw.PaymentStatus = lifecycle.PaymentUnpaid
	}
	*b = Booking(raw)
	return nil
}

// Snapshot is what the lifecycle controls need from a booking.
func (b *Booking) Snapshot() lifecycle.Snapshot {
	return lifecycle.Snapshot{
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		ServiceType:   b.ServiceType,
	}
}

func (b *Booking) HasDecorator() bool {
	return b.DecoratorID != "" || b.DecoratorEmail != ""
}

// Scheduled returns the slot as a time in loc, zero if date/time do not parse.
func (b *Booking) Scheduled(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(DateFormat+" "+TimeFormat, b.Date+" "+b.Time, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BookingPatch carries the fields a customer may edit. Nil means untouched.
type BookingPatch struct {
	Date        *string                `json:"date,omitempty"`
	Time        *string                `json:"time,omitempty"`
	TotalUnit   *int                   `json:"totalUnit,omitempty"`
	TotalCost   *float64               `json:"totalCost,omitempty"`
	ServiceType *lifecycle.ServiceType `json:"serviceType,omitempty"`
	Location    *string                `json:"location,omitempty"`
	Notes       *string                `json:"notes,omitempty"`
}

// Assignment is the admin's decorator pick for a booking.
type Assignment struct {
	DecoratorID    string           `json:"decoratorId"`
	DecoratorName  string           `json:"decoratorName"`
	DecoratorEmail string           `json:"decoratorEmail"`
	Status         lifecycle.Status `json:"status"`
}
