package graphstate

import (
	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/models"
)

// GraphView consumes the current node and link set for rendering.
type GraphView interface {
	Render(nodes []models.VisualNode, links []models.Link)
}

// VisualNodes returns the drawable nodes: workspace roots, assets and
// visualizable properties. Connections are never drawn.
func (s *Store) VisualNodes() []models.VisualNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visualNodesLocked()
}

func (s *Store) visualNodesLocked() []models.VisualNode {
	nodes := make([]models.VisualNode, 0, s.roots.len()+s.assets.len()+s.properties.len())
	for _, r := range s.roots.all() {
		root := cloneRoot(r)
		nodes = append(nodes, models.VisualNode{
			ID:       root.ID,
			NodeType: models.NodeTypeSINDITKG,
			Label:    root.Label,
			Root:     &root,
			Position: root.Position,
		})
	}
	for _, a := range s.assets.all() {
		asset := cloneAsset(a)
		pos := asset.Position
		nodes = append(nodes, models.VisualNode{
			ID:       asset.ID,
			NodeType: models.NodeTypeAbstractAsset,
			Label:    asset.Label,
			Asset:    &asset,
			Position: &pos,
		})
	}
	for _, p := range s.properties.all() {
		if !models.IsVisualizablePropertyType(string(p.Kind())) {
			continue
		}
		prop := cloneProperty(p)
		nodes = append(nodes, models.VisualNode{
			ID:       prop.Base().ID,
			NodeType: prop.Kind(),
			Label:    models.PropertyLabel(prop),
			Property: prop,
			Position: prop.Base().Position,
		})
	}
	return nodes
}

// ImplicitLinks derives rendering edges from the reference lists: workspace
// root to its assets and connections, asset to its properties, and property
// collection to its members. An edge is emitted only when its target is a
// drawable node; unresolved references are logged.
func (s *Store) ImplicitLinks() []models.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.implicitLinksLocked(s.visualIndexLocked())
}

// Links is ImplicitLinks plus one edge per relationship whose endpoints are
// both drawable.
func (s *Store) Links() []models.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linksLocked(s.visualIndexLocked())
}

// Render pushes one consistent snapshot of nodes and links to view.
func (s *Store) Render(view GraphView) {
	s.mu.RLock()
	nodes := s.visualNodesLocked()
	index := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		index[n.ID] = struct{}{}
	}
	links := s.linksLocked(index)
	s.mu.RUnlock()

	view.Render(nodes, links)
}

func (s *Store) visualIndexLocked() map[string]struct{} {
	index := make(map[string]struct{})
	for _, r := range s.roots.all() {
		index[r.ID] = struct{}{}
	}
	for _, a := range s.assets.all() {
		index[a.ID] = struct{}{}
	}
	for _, p := range s.properties.all() {
		if models.IsVisualizablePropertyType(string(p.Kind())) {
			index[p.Base().ID] = struct{}{}
		}
	}
	return index
}

func (s *Store) linksLocked(index map[string]struct{}) []models.Link {
	links := s.implicitLinksLocked(index)
	for _, r := range s.relationships.all() {
		source := s.codec.LocalIDOrURI(r.RelationshipSource.URI)
		target := s.codec.LocalIDOrURI(r.RelationshipTarget.URI)
		_, okSource := index[source]
		_, okTarget := index[target]
		if !okSource || !okTarget {
			continue
		}
		description := r.RelationshipDescription
		if description == "" {
			description = string(r.RelationshipType)
		}
		links = append(links, models.Link{
			ID:              r.ID,
			SourceNodeID:    source,
			TargetNodeID:    target,
			LinkDirection:   models.LinkDirectionRight,
			LinkDescription: description,
			LinkWeight:      1,
		})
	}
	return links
}

func (s *Store) implicitLinksLocked(index map[string]struct{}) []models.Link {
	var links []models.Link
	add := func(sourceID string, ref models.NodeRef, description string) {
		targetID := s.codec.LocalIDOrURI(ref.URI)
		if _, ok := index[targetID]; !ok {
			s.logger.Debug("Unresolved node reference",
				zap.String("source_id", sourceID),
				zap.String("target_uri", ref.URI))
			return
		}
		links = append(links, models.Link{
			ID:              sourceID + "->" + targetID,
			SourceNodeID:    sourceID,
			TargetNodeID:    targetID,
			LinkDirection:   models.LinkDirectionRight,
			LinkDescription: description,
			LinkWeight:      1,
		})
	}

	for _, r := range s.roots.all() {
		for _, ref := range r.Assets {
			add(r.ID, ref, "asset")
		}
		for _, ref := range r.DataConnections {
			add(r.ID, ref, "connection")
		}
	}
	for _, a := range s.assets.all() {
		for _, ref := range a.AssetProperties {
			add(a.ID, ref, "property")
		}
	}
	for _, p := range s.properties.all() {
		coll, ok := p.(*models.PropertyCollection)
		if !ok {
			continue
		}
		if _, drawn := index[coll.ID]; !drawn {
			continue
		}
		for _, ref := range coll.CollectionProperties {
			add(coll.ID, ref, "member")
		}
	}
	return links
}
