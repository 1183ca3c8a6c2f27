package api

import (
	"context"
	"net/url"

	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
)

// NewBooking is the body of POST /bookings.
type NewBooking struct {
	ServiceID       string                  `json:"serviceId"`
	ServiceName     string                  `json:"serviceName"`
	ServiceCategory string                  `json:"serviceCategory"`
	TotalCost       float64                 `json:"totalCost"`
	TotalUnit       int                     `json:"totalUnit"`
	CustomerEmail   string                  `json:"customerEmail"`
	CustomerName    string                  `json:"customerName,omitempty"`
	ServiceType     lifecycle.ServiceType   `json:"serviceType"`
	Location        string                  `json:"location,omitempty"`
	Date            string                  `json:"date"`
	Time            string                  `json:"time"`
	Notes           string                  `json:"notes,omitempty"`
	Status          lifecycle.Status        `json:"status"`
	PaymentStatus   lifecycle.PaymentStatus `json:"paymentStatus"`
}

// CreateBooking posts a new booking and returns the id the server assigned.
func (c *Client) CreateBooking(ctx context.Context, b NewBooking) (string, error) {
	var resp struct {
		ID         string `json:"_id"`
		InsertedID string `json:"insertedId"`
	}
	if err := c.post(ctx, "/bookings", "/bookings", b, &resp); err != nil {
		return "", err
	}
	if resp.ID != "" {
		return resp.ID, nil
	}
	return resp.InsertedID, nil
}

// MyBookings lists the customer's own bookings.
func (c *Client) MyBookings(ctx context.Context, email string) ([]models.Booking, error) {
	var out []models.Booking
	q := url.Values{"email": {email}}
	if err := c.get(ctx, "/bookings", "/bookings", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AllBookings is the admin view of every booking.
func (c *Client) AllBookings(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	if err := c.get(ctx, "/bookings/all", "/bookings/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecoratorBookings lists the projects assigned to a decorator.
func (c *Client) DecoratorBookings(ctx context.Context, email string) ([]models.Booking, error) {
	var out []models.Booking
	q := url.Values{"email": {email}}
	if err := c.get(ctx, "/bookings/decorator", "/bookings/decorator", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := c.get(ctx, "/bookings/:id", "/bookings/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) error {
	return c.patch(ctx, "/bookings/:id", "/bookings/"+url.PathEscape(id), nil, patch, nil)
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.delete(ctx, "/bookings/:id", "/bookings/"+url.PathEscape(id), nil)
}

// UpdateBookingStatus sends the single-field status PATCH.
func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status lifecycle.Status) error {
	body := map[string]lifecycle.Status{"status": status}
	return c.patch(ctx, "/bookings/:id/status", "/bookings/"+url.PathEscape(id)+"/status", nil, body, nil)
}

func (c *Client) AssignDecorator(ctx context.Context, id string, a models.Assignment) error {
	return c.patch(ctx, "/bookings/:id/assign", "/bookings/"+url.PathEscape(id)+"/assign", nil, a, nil)
}
