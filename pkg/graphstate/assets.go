package graphstate

import (
	"context"
	"fmt"

	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/notify"
)

func cloneAsset(a models.Asset) models.Asset {
	a.AssetProperties = append([]models.NodeRef{}, a.AssetProperties...)
	return a
}

// AddAsset stores asset locally, generating an ID if it has none. An asset
// with an existing ID replaces the stored one in place.
func (s *Store) AddAsset(asset models.Asset) models.Asset {
	asset = cloneAsset(asset)
	asset.ID = s.ensureID(asset.ID)

	s.mu.Lock()
	s.assets.put(asset)
	s.mu.Unlock()

	s.changed(CollectionAssets)
	return cloneAsset(asset)
}

// CreateAsset adds the asset optimistically and stores it in the backend.
// On failure the asset is removed again and nil is returned with the error.
func (s *Store) CreateAsset(ctx context.Context, asset models.Asset) (*models.Asset, error) {
	asset = cloneAsset(asset)
	asset.ID = s.ensureID(asset.ID)

	s.mu.Lock()
	undo := s.assets.swap(asset)
	s.pending[asset.ID] = struct{}{}
	s.mu.Unlock()
	s.changed(CollectionAssets)

	created := cloneAsset(asset)
	err := s.confirm(ctx, asset.ID, string(models.NodeTypeAbstractAsset), CollectionAssets,
		undo,
		func(ctx context.Context) error { return s.gateway.CreateAssetNode(ctx, &created) })
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetAsset looks an asset up by local ID.
func (s *Store) GetAsset(id string) (models.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets.get(id)
	if !ok {
		return models.Asset{}, false
	}
	return cloneAsset(a), true
}

// UpdateAsset replaces the asset at id, keeping its position in the
// collection. The stored ID is always id, whatever asset.ID says.
func (s *Store) UpdateAsset(id string, asset models.Asset) bool {
	asset = cloneAsset(asset)
	asset.ID = id

	s.mu.Lock()
	ok := s.assets.replace(id, asset)
	s.mu.Unlock()

	if !ok {
		s.notify("Node not found", fmt.Sprintf("Node %q not found", id), notify.LevelError)
		return false
	}
	s.notify("Node updated", fmt.Sprintf("AbstractAsset node %q updated", id), notify.LevelInfo)
	s.changed(CollectionAssets)
	return true
}

// DeleteAsset removes an asset locally.
func (s *Store) DeleteAsset(id string) bool {
	s.mu.Lock()
	_, ok := s.assets.remove(id)
	s.mu.Unlock()

	if !ok {
		s.notify("Node not found", fmt.Sprintf("Node %q not found", id), notify.LevelError)
		return false
	}
	s.notify("Node deleted", fmt.Sprintf("AbstractAsset node %q has been deleted", id), notify.LevelInfo)
	s.changed(CollectionAssets)
	return true
}

// GetAllAssets returns a snapshot in collection order.
func (s *Store) GetAllAssets() []models.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.assets.all()
	for i := range out {
		out[i] = cloneAsset(out[i])
	}
	return out
}

// GetAssetsByIDs returns the assets refs point at, in collection order.
func (s *Store) GetAssetsByIDs(refs []models.NodeRef) []models.Asset {
	ids := s.refIDs(refs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.assets.byIDs(ids)
	for i := range out {
		out[i] = cloneAsset(out[i])
	}
	return out
}

func (s *Store) DeleteAllAssets() {
	s.mu.Lock()
	s.assets.clear()
	s.mu.Unlock()
	s.changed(CollectionAssets)
}
