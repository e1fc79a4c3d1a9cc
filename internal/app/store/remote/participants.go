// internal/app/store/remote/participants.go
package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/domain/models"
)

// participantWrite is the partial body sent on PUT. Giftee is a pointer to a
// pointer so that "clear" serializes as an explicit null while "unchanged"
// is omitted.
type participantWrite struct {
	Status    *models.ParticipantStatus `json:"status,omitempty"`
	GifteeID  **string                  `json:"gifteeId,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// ListParticipants queries by filter. The store matches query parameters
// loosely, so results are filtered again locally.
func (c *Client) ListParticipants(ctx context.Context, f storeapi.ParticipantFilter) ([]models.Participant, error) {
	q := url.Values{}
	if f.GroupID != "" {
		q.Set("groupId", f.GroupID)
	}
	if f.UserID != "" {
		q.Set("userId", f.UserID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}

	var all []models.Participant
	if err := c.do(ctx, http.MethodGet, c.base, "/participants", q, nil, &all); err != nil {
		// An empty filtered collection comes back as 404 from the store.
		if errors.Is(err, storeapi.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) GetParticipant(ctx context.Context, id string) (models.Participant, error) {
	var p models.Participant
	if err := c.do(ctx, http.MethodGet, c.base, itemPath("participants", id), nil, nil, &p); err != nil {
		return models.Participant{}, err
	}
	return p, nil
}

// CreateParticipant posts a new pending participant. The store assigns the id.
func (c *Client) CreateParticipant(ctx context.Context, p models.Participant) (models.Participant, error) {
	existing, err := c.ListParticipants(ctx, storeapi.ParticipantFilter{GroupID: p.GroupID, UserID: p.UserID})
	if err != nil {
		return models.Participant{}, err
	}
	if len(existing) > 0 {
		return models.Participant{}, storeapi.ErrDuplicate
	}

	now := time.Now().UTC()
	p.ID = ""
	if p.Status == "" {
		p.Status = models.ParticipantPending
	}
	p.GifteeID = nil
	p.CreatedAt = now
	p.UpdatedAt = now

	var out models.Participant
	if err := c.do(ctx, http.MethodPost, c.base, "/participants", nil, p, &out); err != nil {
		return models.Participant{}, err
	}
	return out, nil
}

func (c *Client) WriteParticipant(ctx context.Context, id string, patch storeapi.ParticipantPatch) (models.Participant, error) {
	body := participantWrite{Status: patch.Status, UpdatedAt: time.Now().UTC()}
	switch {
	case patch.ClearGiftee:
		var null *string
		body.GifteeID = &null
	case patch.GifteeID != nil:
		g := *patch.GifteeID
		gp := &g
		body.GifteeID = &gp
	}

	var out models.Participant
	if err := c.do(ctx, http.MethodPut, c.base, itemPath("participants", id), nil, body, &out); err != nil {
		return models.Participant{}, err
	}
	return out, nil
}

func (c *Client) DeleteParticipant(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.base, itemPath("participants", id), nil, nil, nil)
}
