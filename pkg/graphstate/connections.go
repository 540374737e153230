package graphstate

import (
	"context"
	"fmt"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/notify"
)

// AddConnection stores a connection locally.
func (s *Store) AddConnection(conn models.Connection) models.Connection {
	conn.ID = s.ensureID(conn.ID)

	s.mu.Lock()
	s.connections.put(conn)
	s.mu.Unlock()

	s.changed(CollectionConnections)
	return conn
}

// CreateConnection adds conn optimistically and stores it in the backend.
func (s *Store) CreateConnection(ctx context.Context, conn models.Connection) (*models.Connection, error) {
	conn.ID = s.ensureID(conn.ID)

	s.mu.Lock()
	undo := s.connections.swap(conn)
	s.pending[conn.ID] = struct{}{}
	s.mu.Unlock()
	s.changed(CollectionConnections)

	created := conn
	err := s.confirm(ctx, conn.ID, string(models.NodeTypeConnection), CollectionConnections,
		undo,
		func(ctx context.Context) error { return s.gateway.CreateConnectionNode(ctx, &created) })
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) GetConnection(id string) (models.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections.get(id)
}

// UpdateConnection replaces the connection at id in place.
func (s *Store) UpdateConnection(id string, conn models.Connection) bool {
	conn.ID = id

	s.mu.Lock()
	ok := s.connections.replace(id, conn)
	s.mu.Unlock()

	if !ok {
		s.notify("Connection not found", fmt.Sprintf("Connection %q not found", id), notify.LevelError)
		return false
	}
	s.notify("Connection updated", fmt.Sprintf("Connection %q updated", id), notify.LevelInfo)
	s.changed(CollectionConnections)
	return true
}

func (s *Store) DeleteConnection(id string) bool {
	s.mu.Lock()
	_, ok := s.connections.remove(id)
	s.mu.Unlock()

	if !ok {
		s.notify("Connection not found", fmt.Sprintf("Connection %q not found", id), notify.LevelError)
		return false
	}
	s.notify("Connection deleted", fmt.Sprintf("Connection %q has been deleted", id), notify.LevelInfo)
	s.changed(CollectionConnections)
	return true
}

func (s *Store) GetAllConnections() []models.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections.all()
}

func (s *Store) GetConnectionsByIDs(refs []models.NodeRef) []models.Connection {
	ids := s.refIDs(refs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connections.byIDs(ids)
}

func (s *Store) DeleteAllConnections() {
	s.mu.Lock()
	s.connections.clear()
	s.mu.Unlock()
	s.changed(CollectionConnections)
}

// CheckConnection refetches the connection node and stores the backend's
// view of whether it is connected.
func (s *Store) CheckConnection(ctx context.Context, id string) (bool, error) {
	node, err := s.gateway.GetNode(ctx, id, 0)
	if err != nil {
		return false, fmt.Errorf("check connection %s: %w", id, err)
	}
	if node == nil {
		return false, fmt.Errorf("check connection %s: %w", id, apperrors.ErrNotFound)
	}
	connected := node.Bool("isConnected", false)

	s.mu.Lock()
	conn, ok := s.connections.get(id)
	if ok {
		conn.IsConnected = connected
		s.connections.replace(id, conn)
	}
	s.mu.Unlock()

	if ok {
		s.changed(CollectionConnections)
	}
	return connected, nil
}
