package api

import (
	"context"
	"net/url"

	"decorbook/internal/models"
)

// UserRole returns the marketplace role of email, customer when the server has none.
func (c *Client) UserRole(ctx context.Context, email string) (string, error) {
	var resp struct {
		Role string `json:"role"`
	}
	if err := c.get(ctx, "/users/:email/role", "/users/"+url.PathEscape(email)+"/role", nil, &resp); err != nil {
		return "", err
	}
	if resp.Role == "" {
		return models.RoleCustomer, nil
	}
	return resp.Role, nil
}

// UpsertUser records the user after every sign-in.
func (c *Client) UpsertUser(ctx context.Context, u models.User) error {
	return c.put(ctx, "/users", "/users", u, nil)
}

type UserPatch struct {
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

func (c *Client) UpdateUser(ctx context.Context, email string, p UserPatch) error {
	return c.patch(ctx, "/users/:email", "/users/"+url.PathEscape(email), nil, p, nil)
}
