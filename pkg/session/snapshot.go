package session

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sindit-io/kgsync/pkg/models"
)

// Snapshot is a point-in-time export of the loaded graph.
type Snapshot struct {
	Version       string                `yaml:"version"`
	Backend       string                `yaml:"backend"`
	TakenAt       time.Time             `yaml:"taken_at"`
	Nodes         []SnapshotNode        `yaml:"nodes"`
	Links         []models.Link         `yaml:"links"`
	Connections   []models.Connection   `yaml:"connections"`
	Relationships []models.Relationship `yaml:"relationships"`
}

// SnapshotNode is one drawable node. Values are included for properties.
type SnapshotNode struct {
	ID        string           `yaml:"id"`
	Type      models.NodeType  `yaml:"type"`
	Label     string           `yaml:"label"`
	Value     string           `yaml:"value,omitempty"`
	Timestamp string           `yaml:"timestamp,omitempty"`
	Position  *models.Position `yaml:"position,omitempty"`
}

// Snapshot captures the store's current drawable graph.
func (s *Session) Snapshot() *Snapshot {
	store := s.store
	visual := store.VisualNodes()

	nodes := make([]SnapshotNode, 0, len(visual))
	for _, v := range visual {
		n := SnapshotNode{
			ID:       v.ID,
			Type:     v.NodeType,
			Label:    v.Label,
			Position: v.Position,
		}
		if v.Property != nil {
			n.Value = v.Property.Base().PropertyValue
			n.Timestamp = v.Property.Base().PropertyValueTimestamp
		}
		nodes = append(nodes, n)
	}

	return &Snapshot{
		Version:       s.cfg.Version,
		Backend:       s.cfg.Backend.APIURL,
		TakenAt:       time.Now().UTC(),
		Nodes:         nodes,
		Links:         store.Links(),
		Connections:   store.GetAllConnections(),
		Relationships: store.GetAllRelationships(),
	}
}

// WriteYAML encodes the snapshot to w.
func (snap *Snapshot) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}
