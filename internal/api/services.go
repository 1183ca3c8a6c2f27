package api

import (
	"context"
	"net/url"
	"strconv"

	"decorbook/internal/models"
)

// ListServices fetches one page of the catalog. An empty filter lists everything.
func (c *Client) ListServices(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.MinBudget.IsPositive() {
		q.Set("minBudget", f.MinBudget.String())
	}
	if f.MaxBudget.IsPositive() {
		q.Set("maxBudget", f.MaxBudget.String())
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	var page models.ServicePage
	if err := c.getCached(ctx, "/services", "/services", q, &page); err != nil {
		return nil, err
	}
	if page.Page == 0 {
		page.Page = f.Page
	}
	return &page, nil
}

func (c *Client) GetService(ctx context.Context, id string) (*models.Service, error) {
	var svc models.Service
	if err := c.getCached(ctx, "/services/:id", "/services/"+url.PathEscape(id), nil, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// ServicePayload is the body of service create and update calls.
type ServicePayload struct {
	Name           string  `json:"service_name,omitempty"`
	Category       string  `json:"service_category,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
	Unit           string  `json:"unit,omitempty"`
	Description    string  `json:"description,omitempty"`
	Image          string  `json:"image,omitempty"`
	CreatedByEmail string  `json:"createdByEmail,omitempty"`
}

func (c *Client) CreateService(ctx context.Context, p ServicePayload) (*models.Service, error) {
	var resp struct {
		models.Service
		InsertedID string `json:"insertedId"`
	}
	if err := c.post(ctx, "/services", "/services", p, &resp); err != nil {
		return nil, err
	}
	svc := resp.Service
	if svc.ID == "" {
		svc.ID = resp.InsertedID
	}
	return &svc, nil
}

func (c *Client) UpdateService(ctx context.Context, id string, p ServicePayload) error {
	return c.patch(ctx, "/services/:id", "/services/"+url.PathEscape(id), nil, p, nil)
}

func (c *Client) DeleteService(ctx context.Context, id string) error {
	return c.delete(ctx, "/services/:id", "/services/"+url.PathEscape(id), nil)
}

// ListDecorators returns decorators, optionally filtered by status.
func (c *Client) ListDecorators(ctx context.Context, status string) ([]models.Decorator, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	var out []models.Decorator
	if err := c.get(ctx, "/decorators", "/decorators", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TopDecorators(ctx context.Context) ([]models.Decorator, error) {
	var out []models.Decorator
	if err := c.getCached(ctx, "/decorators/top", "/decorators/top", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetDecoratorStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return c.patch(ctx, "/decorators/:id/status", "/decorators/"+url.PathEscape(id)+"/status", nil, body, nil)
}
