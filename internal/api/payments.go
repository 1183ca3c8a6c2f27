package api

import (
	"context"
	"errors"
	"net/url"

	"decorbook/internal/models"
)

// CheckoutRequest is the body of POST /create-checkout-session.
type CheckoutRequest struct {
	BookingID     string  `json:"bookingId"`
	ServiceName   string  `json:"serviceName"`
	Cost          float64 `json:"cost"`
	CustomerEmail string  `json:"customerEmail"`
	SuccessURL    string  `json:"successUrl"`
	CancelURL     string  `json:"cancelUrl"`
	Currency      string  `json:"currency,omitempty"`
}

// CreateCheckoutSession returns the hosted checkout URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, r CheckoutRequest) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/create-checkout-session", "/create-checkout-session", r, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", errors.New("checkout session without url")
	}
	return resp.URL, nil
}

// ConfirmPayment reports a successful checkout back to the API, which marks
// the booking paid.
func (c *Client) ConfirmPayment(ctx context.Context, sessionID string) (*models.CheckoutConfirmation, error) {
	var resp models.CheckoutConfirmation
	q := url.Values{"session_id": {sessionID}}
	if err := c.patch(ctx, "/payment-success", "/payment-success", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Payments(ctx context.Context, email string) ([]models.Payment, error) {
	var out []models.Payment
	q := url.Values{"email": {email}}
	if err := c.get(ctx, "/payments", "/payments", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Analytics is the admin dashboard aggregate.
func (c *Client) Analytics(ctx context.Context) (*models.Analytics, error) {
	var out models.Analytics
	if err := c.get(ctx, "/admin/analytics", "/admin/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
