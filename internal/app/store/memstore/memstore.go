// internal/app/store/memstore/memstore.go
//
// Package memstore is an in-process implementation of the storeapi
// collaborators. It backs the "memory" store backend used for local runs and
// is the store double in tests; write hooks allow failures to be injected
// per record.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"github.com/google/uuid"
)

// ParticipantWriteHook runs before a participant write is applied. A non-nil
// error aborts that write and is returned to the caller.
type ParticipantWriteHook func(id string, patch storeapi.ParticipantPatch) error

// GroupWriteHook runs before a group write is applied.
type GroupWriteHook func(id string, patch storeapi.GroupPatch) error

// Store holds participants, groups and users in memory.
type Store struct {
	mu           sync.RWMutex
	participants map[string]models.Participant
	groups       map[string]models.Group
	users        map[string]models.User

	hookMu          sync.RWMutex
	participantHook ParticipantWriteHook
	groupHook       GroupWriteHook
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		participants: make(map[string]models.Participant),
		groups:       make(map[string]models.Group),
		users:        make(map[string]models.User),
	}
}

// Backend exposes s as every collaborator.
func (s *Store) Backend() storeapi.Backend {
	return storeapi.Backend{Participants: s, Groups: s, Users: s, Pinger: s}
}

// OnParticipantWrite installs (or clears, with nil) the participant hook.
func (s *Store) OnParticipantWrite(h ParticipantWriteHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.participantHook = h
}

// OnGroupWrite installs (or clears, with nil) the group hook.
func (s *Store) OnGroupWrite(h GroupWriteHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.groupHook = h
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

/*─────────────────────────────────────────────────────────────────────────────*
| Participants                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Store) ListParticipants(ctx context.Context, f storeapi.ParticipantFilter) ([]models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Participant
	for _, p := range s.participants {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return models.Participant{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return models.Participant{}, storeapi.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateParticipant(ctx context.Context, p models.Participant) (models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return models.Participant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.participants {
		if existing.GroupID == p.GroupID && existing.UserID == p.UserID {
			return models.Participant{}, storeapi.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	if p.Status == "" {
		p.Status = models.ParticipantPending
	}
	p.GifteeID = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	s.participants[p.ID] = p
	return p, nil
}

func (s *Store) WriteParticipant(ctx context.Context, id string, patch storeapi.ParticipantPatch) (models.Participant, error) {
	if err := ctx.Err(); err != nil {
		return models.Participant{}, err
	}
	s.hookMu.RLock()
	hook := s.participantHook
	s.hookMu.RUnlock()
	if hook != nil {
		if err := hook(id, patch); err != nil {
			return models.Participant{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return models.Participant{}, storeapi.ErrNotFound
	}
	p = patch.Apply(p)
	p.UpdatedAt = time.Now().UTC()
	s.participants[id] = p
	return p, nil
}

func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[id]; !ok {
		return storeapi.ErrNotFound
	}
	delete(s.participants, id)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Groups                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Store) GetGroup(ctx context.Context, id string) (models.Group, error) {
	if err := ctx.Err(); err != nil {
		return models.Group{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return models.Group{}, storeapi.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni == nj {
			return out[i].ID < out[j].ID
		}
		return ni < nj
	})
	return out, nil
}

func (s *Store) CreateGroup(ctx context.Context, g models.Group) (models.Group, error) {
	if err := ctx.Err(); err != nil {
		return models.Group{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	g.ID = uuid.NewString()
	g.NameCI = strings.ToLower(g.Name)
	g.Status = models.GroupOpen
	g.IsDrawDone = false
	g.Version = 1
	g.CreatedAt = now
	g.UpdatedAt = now
	s.groups[g.ID] = g
	return g, nil
}

func (s *Store) WriteGroup(ctx context.Context, id string, patch storeapi.GroupPatch) (models.Group, error) {
	if err := ctx.Err(); err != nil {
		return models.Group{}, err
	}
	s.hookMu.RLock()
	hook := s.groupHook
	s.hookMu.RUnlock()
	if hook != nil {
		if err := hook(id, patch); err != nil {
			return models.Group{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return models.Group{}, storeapi.ErrNotFound
	}
	if patch.IfVersion != nil && *patch.IfVersion != g.Version {
		return models.Group{}, storeapi.ErrVersionConflict
	}
	g = patch.Apply(g)
	g.Version++
	g.UpdatedAt = time.Now().UTC()
	s.groups[id] = g
	return g, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Users                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storeapi.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storeapi.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return models.User{}, storeapi.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Name = strings.TrimSpace(u.Name)
	u.NameCI = strings.ToLower(u.Name)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storeapi.ErrNotFound
	}
	delete(s.users, id)
	return nil
}
