package graphstate

import (
	"context"
	"fmt"

	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/notify"
)

func cloneRelationship(r models.Relationship) models.Relationship {
	r.RelationshipUnit = cloneRef(r.RelationshipUnit)
	return r
}

func (s *Store) AddRelationship(r models.Relationship) models.Relationship {
	r = cloneRelationship(r)
	r.ID = s.ensureID(r.ID)

	s.mu.Lock()
	s.relationships.put(r)
	s.mu.Unlock()

	s.changed(CollectionRelationships)
	return cloneRelationship(r)
}

// CreateRelationship adds r optimistically and stores it in the backend.
func (s *Store) CreateRelationship(ctx context.Context, r models.Relationship) (*models.Relationship, error) {
	r = cloneRelationship(r)
	r.ID = s.ensureID(r.ID)

	s.mu.Lock()
	undo := s.relationships.swap(r)
	s.pending[r.ID] = struct{}{}
	s.mu.Unlock()
	s.changed(CollectionRelationships)

	created := cloneRelationship(r)
	err := s.confirm(ctx, r.ID, "Relationship", CollectionRelationships,
		undo,
		func(ctx context.Context) error { return s.gateway.CreateRelationship(ctx, &created) })
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) GetRelationship(id string) (models.Relationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relationships.get(id)
	return cloneRelationship(r), ok
}

func (s *Store) UpdateRelationship(id string, r models.Relationship) bool {
	r = cloneRelationship(r)
	r.ID = id

	s.mu.Lock()
	ok := s.relationships.replace(id, r)
	s.mu.Unlock()

	if !ok {
		s.notify("Relationship not found", fmt.Sprintf("Relationship %q not found", id), notify.LevelError)
		return false
	}
	s.notify("Relationship updated", fmt.Sprintf("Relationship %q updated", id), notify.LevelInfo)
	s.changed(CollectionRelationships)
	return true
}

func (s *Store) DeleteRelationship(id string) bool {
	s.mu.Lock()
	_, ok := s.relationships.remove(id)
	s.mu.Unlock()

	if !ok {
		s.notify("Relationship not found", fmt.Sprintf("Relationship %q not found", id), notify.LevelError)
		return false
	}
	s.notify("Relationship deleted", fmt.Sprintf("Relationship %q has been deleted", id), notify.LevelInfo)
	s.changed(CollectionRelationships)
	return true
}

func (s *Store) GetAllRelationships() []models.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.relationships.all()
	for i := range out {
		out[i] = cloneRelationship(out[i])
	}
	return out
}

func (s *Store) GetRelationshipsByIDs(refs []models.NodeRef) []models.Relationship {
	ids := s.refIDs(refs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.relationships.byIDs(ids)
	for i := range out {
		out[i] = cloneRelationship(out[i])
	}
	return out
}

func (s *Store) DeleteAllRelationships() {
	s.mu.Lock()
	s.relationships.clear()
	s.mu.Unlock()
	s.changed(CollectionRelationships)
}
