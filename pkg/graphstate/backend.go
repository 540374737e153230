package graphstate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/notify"
)

// UpdateAssetBackend pushes the local copy of an asset to the backend.
func (s *Store) UpdateAssetBackend(ctx context.Context, id string, overwrite bool) error {
	asset, ok := s.GetAsset(id)
	if !ok {
		return s.backendFailure("Error updating node", id, fmt.Errorf("asset %s: %w", id, apperrors.ErrNotFound))
	}
	if err := s.gateway.UpdateAssetNode(ctx, &asset, overwrite); err != nil {
		return s.backendFailure("Error updating node", id, err)
	}
	s.notify("Node saved", fmt.Sprintf("AbstractAsset node %q saved", id), notify.LevelInfo)
	return nil
}

// UpdatePropertyBackend pushes the local copy of a property to the backend.
func (s *Store) UpdatePropertyBackend(ctx context.Context, id string, overwrite bool) error {
	p, ok := s.GetProperty(id)
	if !ok {
		return s.backendFailure("Error updating property", id, fmt.Errorf("property %s: %w", id, apperrors.ErrNotFound))
	}
	if err := s.gateway.UpdatePropertyNode(ctx, p, overwrite); err != nil {
		return s.backendFailure("Error updating property", id, err)
	}
	s.notify("Property saved", fmt.Sprintf("Property %q saved", id), notify.LevelInfo)
	return nil
}

// DeleteAssetBackend deletes the asset in the backend, then locally.
func (s *Store) DeleteAssetBackend(ctx context.Context, id string) error {
	if err := s.deleteBackend(ctx, id); err != nil {
		return s.backendFailure("Error deleting node", id, err)
	}
	s.DeleteAsset(id)
	return nil
}

// DeletePropertyBackend deletes the property in the backend, then locally,
// closing its stream.
func (s *Store) DeletePropertyBackend(ctx context.Context, id string) error {
	if err := s.deleteBackend(ctx, id); err != nil {
		return s.backendFailure("Error deleting property", id, err)
	}
	s.DeleteProperty(id)
	return nil
}

// DeleteConnectionBackend deletes the connection in the backend, then locally.
func (s *Store) DeleteConnectionBackend(ctx context.Context, id string) error {
	if err := s.deleteBackend(ctx, id); err != nil {
		return s.backendFailure("Error deleting connection", id, err)
	}
	s.DeleteConnection(id)
	return nil
}

// deleteBackend treats a node the backend no longer knows as deleted.
func (s *Store) deleteBackend(ctx context.Context, id string) error {
	err := s.gateway.DeleteNode(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Debug("Node already absent in backend", zap.String("id", id))
		return nil
	}
	return err
}

func (s *Store) backendFailure(title, id string, err error) error {
	s.logger.Error(title,
		zap.String("id", id),
		zap.String("error", logging.SanitizeError(err)))
	s.notify(title, logging.SanitizeError(err), notify.LevelError)
	return err
}
