// internal/app/store/remote/users.go
package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/domain/models"
)

func (c *Client) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, c.base, itemPath("users", id), nil, nil, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetUserByEmail filters the users collection by email and returns the exact
// case-insensitive match.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var all []models.User
	if err := c.do(ctx, http.MethodGet, c.base, "/users", url.Values{"email": {email}}, nil, &all); err != nil {
		return models.User{}, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, storeapi.ErrNotFound
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.do(ctx, http.MethodGet, c.base, "/users", nil, nil, &out); err != nil {
		if errors.Is(err, storeapi.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, err := c.GetUserByEmail(ctx, u.Email); err == nil {
		return models.User{}, storeapi.ErrDuplicate
	} else if !errors.Is(err, storeapi.ErrNotFound) {
		return models.User{}, err
	}

	now := time.Now().UTC()
	u.ID = ""
	u.Name = strings.TrimSpace(u.Name)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	var out models.User
	if err := c.do(ctx, http.MethodPost, c.base, "/users", nil, u, &out); err != nil {
		return models.User{}, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.base, itemPath("users", id), nil, nil, nil)
}
