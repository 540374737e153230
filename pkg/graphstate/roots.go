package graphstate

import (
	"github.com/sindit-io/kgsync/pkg/models"
)

func cloneRoot(r models.KGRoot) models.KGRoot {
	r.Assets = append([]models.NodeRef(nil), r.Assets...)
	r.DataConnections = append([]models.NodeRef(nil), r.DataConnections...)
	if r.Position != nil {
		pos := *r.Position
		r.Position = &pos
	}
	return r
}

// AddRoot stores a workspace root node. Roots come from the backend only and
// have no create operation.
func (s *Store) AddRoot(root models.KGRoot) models.KGRoot {
	root = cloneRoot(root)
	root.ID = s.ensureID(root.ID)
	if root.Position == nil {
		root.Position = &models.Position{}
	}

	s.mu.Lock()
	s.roots.put(root)
	s.mu.Unlock()

	s.changed(CollectionRoots)
	return cloneRoot(root)
}

func (s *Store) GetRoot(id string) (models.KGRoot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roots.get(id)
	return cloneRoot(r), ok
}

func (s *Store) GetAllRoots() []models.KGRoot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.roots.all()
	for i := range out {
		out[i] = cloneRoot(out[i])
	}
	return out
}

func (s *Store) DeleteAllRoots() {
	s.mu.Lock()
	s.roots.clear()
	s.mu.Unlock()
	s.changed(CollectionRoots)
}
