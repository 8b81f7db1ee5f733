package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrmfg/portal/pkg/rbac"
)

// Query is one quality-review query raised against a material at a plant.
type Query struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	MaterialCode string         `json:"material_code,omitempty"`
	ProjectCode  string         `json:"project_code,omitempty"`
	Plant        rbac.PlantCode `json:"plant"`
	Status       string         `json:"status"`
	RaisedBy     string         `json:"raised_by"`
	CreatedAt    time.Time      `json:"created_at"`
}

// QueryStore is an in-memory query collection, ordered by insertion. The
// plant scoping of what each principal sees happens in the handler via
// rbac.FilterByPlant, never here.
type QueryStore struct {
	mu      sync.RWMutex
	queries []Query
}

// NewQueryStore creates an empty store.
func NewQueryStore() *QueryStore {
	return &QueryStore{}
}

// Add assigns an ID and timestamp and appends the query.
func (s *QueryStore) Add(q Query) Query {
	q.ID = uuid.NewString()
	q.CreatedAt = time.Now().UTC()
	if q.Status == "" {
		q.Status = "OPEN"
	}

	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	return q
}

// List returns all queries in insertion order.
func (s *QueryStore) List() []Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Query, len(s.queries))
	copy(out, s.queries)
	return out
}
