package graphstate

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/notify"
)

// cloneProperty copies p so callers never share memory with the store.
func cloneProperty(p models.Property) models.Property {
	var out models.Property
	switch v := p.(type) {
	case *models.GenericProperty:
		c := *v
		out = &c
	case *models.AbstractAssetProperty:
		c := *v
		out = &c
	case *models.DatabaseProperty:
		c := *v
		out = &c
	case *models.TimeseriesProperty:
		c := *v
		c.TimeseriesIdentifiers = maps.Clone(v.TimeseriesIdentifiers)
		c.TimeseriesTags = maps.Clone(v.TimeseriesTags)
		out = &c
	case *models.StreamingProperty:
		c := *v
		out = &c
	case *models.S3ObjectProperty:
		c := *v
		out = &c
	case *models.PropertyCollection:
		c := *v
		c.CollectionProperties = append([]models.NodeRef{}, v.CollectionProperties...)
		out = &c
	default:
		return p
	}

	b := out.Base()
	b.PropertyDataType = cloneRef(b.PropertyDataType)
	b.PropertyUnit = cloneRef(b.PropertyUnit)
	b.PropertyConnection = cloneRef(b.PropertyConnection)
	if b.Position != nil {
		pos := *b.Position
		b.Position = &pos
	}
	return out
}

func cloneRef(r *models.NodeRef) *models.NodeRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func cloneProperties(ps []models.Property) []models.Property {
	for i := range ps {
		ps[i] = cloneProperty(ps[i])
	}
	return ps
}

func (s *Store) prepareProperty(p models.Property) models.Property {
	p = cloneProperty(p)
	b := p.Base()
	b.ID = s.ensureID(b.ID)
	if b.Position == nil {
		b.Position = &models.Position{}
	}
	if b.NodeType == "" {
		b.NodeType = models.VariantKind(p)
	}
	return p
}

// AddProperty stores p locally. Adding a streaming property opens its live
// reader when streaming is enabled; adding the same ID again keeps the single
// reader already open.
func (s *Store) AddProperty(p models.Property) models.Property {
	p = s.prepareProperty(p)

	s.mu.Lock()
	s.properties.put(p)
	s.mu.Unlock()

	s.startStream(p)
	s.changed(CollectionProperties)
	return cloneProperty(p)
}

// AddPropertyNode builds a property of kind from a raw backend record and
// stores it. Records without a uri get a generated ID.
func (s *Store) AddPropertyNode(kind models.NodeType, node models.BackendNode) models.Property {
	id := ""
	if u := node.URI(); u != "" {
		id = s.codec.LocalIDOrURI(u)
	}
	return s.AddProperty(propertyFromNode(id, kind, node))
}

// CreateProperty adds p optimistically and stores it in the backend through
// the creation call matching its variant.
func (s *Store) CreateProperty(ctx context.Context, p models.Property) (models.Property, error) {
	p = s.prepareProperty(p)
	id := p.Base().ID

	s.mu.Lock()
	undo := s.properties.swap(p)
	s.pending[id] = struct{}{}
	s.mu.Unlock()
	s.changed(CollectionProperties)

	created := cloneProperty(p)
	err := s.confirm(ctx, id, string(p.Kind()), CollectionProperties,
		undo,
		func(ctx context.Context) error { return s.gateway.CreatePropertyNode(ctx, created) })
	if err != nil {
		return nil, err
	}
	s.startStream(created)
	return created, nil
}

func (s *Store) GetProperty(id string) (models.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties.get(id)
	if !ok {
		return nil, false
	}
	return cloneProperty(p), true
}

// UpdateProperty replaces the property at id in place, forcing its ID to id.
func (s *Store) UpdateProperty(id string, p models.Property) bool {
	if !s.replaceProperty(id, p) {
		s.notify("Property not found", fmt.Sprintf("Property %q not found", id), notify.LevelError)
		return false
	}
	s.notify("Property updated", fmt.Sprintf("Property %q updated", id), notify.LevelInfo)
	s.changed(CollectionProperties)
	return true
}

func (s *Store) replaceProperty(id string, p models.Property) bool {
	p = cloneProperty(p)
	p.Base().ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.properties.replace(id, p)
}

// setPropertyValue applies a live value without notifying the user; stream
// updates arrive far too often for toasts.
func (s *Store) setPropertyValue(id, value, timestamp string) bool {
	s.mu.Lock()
	p, ok := s.properties.get(id)
	if ok {
		p = cloneProperty(p)
		p.Base().PropertyValue = value
		if timestamp != "" {
			p.Base().PropertyValueTimestamp = timestamp
		}
		s.properties.replace(id, p)
	}
	s.mu.Unlock()

	if ok {
		s.changed(CollectionProperties)
	}
	return ok
}

// DeleteProperty removes a property locally and closes its stream.
func (s *Store) DeleteProperty(id string) bool {
	s.mu.Lock()
	_, ok := s.properties.remove(id)
	s.mu.Unlock()

	if !ok {
		s.notify("Property not found", fmt.Sprintf("Property %q not found", id), notify.LevelError)
		return false
	}
	s.streams.stop(id)
	s.notify("Property deleted", fmt.Sprintf("Property %q has been deleted", id), notify.LevelInfo)
	s.changed(CollectionProperties)
	return true
}

func (s *Store) GetAllProperties() []models.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProperties(s.properties.all())
}

// GetPropertiesByIDs returns the properties refs point at, in collection order.
func (s *Store) GetPropertiesByIDs(refs []models.NodeRef) []models.Property {
	ids := s.refIDs(refs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProperties(s.properties.byIDs(ids))
}

func (s *Store) DeleteAllProperties() {
	s.mu.Lock()
	s.properties.clear()
	s.mu.Unlock()
	s.streams.stopAll()
	s.changed(CollectionProperties)
}

// AddPropertyToAsset creates p and then links it to the asset, locally and
// in the backend. The two steps are not transactional: when linking fails the
// created property is kept and returned together with the error. Each failed
// step sends its own error notification.
func (s *Store) AddPropertyToAsset(ctx context.Context, assetID string, p models.Property) (models.Property, error) {
	if _, ok := s.GetAsset(assetID); !ok {
		s.notify("Error adding property", fmt.Sprintf("AbstractAsset node %q not found", assetID), notify.LevelError)
		return nil, fmt.Errorf("asset %s: %w", assetID, apperrors.ErrNotFound)
	}

	created, err := s.CreateProperty(ctx, p)
	if err != nil {
		return nil, err
	}
	propertyID := created.Base().ID

	if err := s.linkProperty(ctx, assetID, propertyID); err != nil {
		s.logger.Warn("Property created but not linked to asset",
			zap.String("asset_id", assetID),
			zap.String("property_id", propertyID),
			zap.String("error", logging.SanitizeError(err)))
		s.notify("Error linking property", fmt.Sprintf("Property %q was created but could not be added to %q: %s", propertyID, assetID, logging.SanitizeError(err)), notify.LevelError)
		return created, fmt.Errorf("link property %s to asset %s: %w", propertyID, assetID, err)
	}
	return created, nil
}

func (s *Store) linkProperty(ctx context.Context, assetID, propertyID string) error {
	propertyURI, err := s.codec.ToBackendURI(propertyID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	asset, ok := s.assets.get(assetID)
	if ok {
		asset = cloneAsset(asset)
		asset.AssetProperties = append(asset.AssetProperties, models.NodeRef{URI: propertyURI})
		s.assets.replace(assetID, asset)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("asset %s was removed", assetID)
	}
	s.changed(CollectionAssets)

	return s.gateway.AddPropertyToAssetNode(ctx, assetID, propertyID)
}
