package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"patient-health-qr/internal/domain/accessgrants"
)

type grantRepo struct {
	mu      sync.RWMutex
	byID    map[string]accessgrants.Grant
	byToken map[string]string // token -> id
}

func NewAccessGrantsRepo() accessgrants.Repository {
	return &grantRepo{
		byID:    make(map[string]accessgrants.Grant),
		byToken: make(map[string]string),
	}
}

func (r *grantRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == "" || g.Token == "" {
		return errors.New("grant id and token required")
	}
	if _, exists := r.byID[g.ID]; exists {
		return errors.New("grant already exists")
	}
	if _, exists := r.byToken[g.Token]; exists {
		return accessgrants.ErrTokenConflict
	}
	r.byID[g.ID] = cloneGrant(g)
	r.byToken[g.Token] = g.ID
	return nil
}

// Update sólo persiste ExpiresAt: token, dueño y nivel son inmutables.
func (r *grantRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, exists := r.byID[g.ID]
	if !exists {
		return accessgrants.ErrNotFound
	}
	cur.ExpiresAt = g.ExpiresAt
	r.byID[g.ID] = cur
	return nil
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return cloneGrant(g), nil
}

func (r *grantRepo) GetByToken(ctx context.Context, token string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byToken[token]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return cloneGrant(r.byID[id]), nil
}

func (r *grantRepo) ListActiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if g.OwnerID == ownerID && g.ActiveAt(now) {
			out = append(out, cloneGrant(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

// RecordView chequea y escribe bajo el mismo lock.
func (r *grantRepo) RecordView(ctx context.Context, id string, v accessgrants.ViewerInfo, now time.Time) (accessgrants.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byID[id]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	if !g.ActiveAt(now) {
		return accessgrants.Grant{}, accessgrants.ErrExpired
	}

	g.ViewCount++
	t := now
	g.LastViewedAt = &t
	if v.ViewedAt.IsZero() {
		v.ViewedAt = now
	}
	g.LastViewer = &v
	r.byID[id] = g
	return cloneGrant(g), nil
}

// cloneGrant evita que el caller comparta punteros con el map.
func cloneGrant(g accessgrants.Grant) accessgrants.Grant {
	if g.LastViewedAt != nil {
		t := *g.LastViewedAt
		g.LastViewedAt = &t
	}
	if g.LastViewer != nil {
		v := *g.LastViewer
		g.LastViewer = &v
	}
	return g
}
