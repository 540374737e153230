// Package models holds the in-memory graph model: assets, properties,
// connections, relationships and the workspace root.
package models

// NodeRef is a weak by-URI reference to another graph node. It is resolved by
// lookup at read time and never materialized as a pointer.
type NodeRef struct {
	URI string `json:"uri" yaml:"uri"`
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Asset is an AbstractAsset node.
type Asset struct {
	ID              string    `json:"id" yaml:"id"`
	Label           string    `json:"label" yaml:"label"`
	Description     string    `json:"description" yaml:"description"`
	AssetType       string    `json:"assetType,omitempty" yaml:"asset_type,omitempty"`
	AssetProperties []NodeRef `json:"assetProperties" yaml:"asset_properties"`
	Position        Position  `json:"position" yaml:"position"`
}

// Connection is a configured endpoint that properties read from. It is never
// rendered as a graph node.
type Connection struct {
	ID             string         `json:"id" yaml:"id"`
	ConnectionName string         `json:"connectionName" yaml:"connection_name"`
	Description    string         `json:"description" yaml:"description"`
	Host           string         `json:"host" yaml:"host"`
	Port           int            `json:"port" yaml:"port"`
	ConnectionType ConnectionType `json:"connectionType" yaml:"connection_type"`
	IsConnected    bool           `json:"isConnected" yaml:"is_connected"`
}

// Relationship is a directed typed edge between two node URIs.
type Relationship struct {
	ID                      string           `json:"id" yaml:"id"`
	RelationshipType        RelationshipType `json:"relationshipType" yaml:"relationship_type"`
	RelationshipSource      NodeRef          `json:"relationshipSource" yaml:"source"`
	RelationshipTarget      NodeRef          `json:"relationshipTarget" yaml:"target"`
	RelationshipDescription string           `json:"relationshipDescription,omitempty" yaml:"description,omitempty"`
	RelationshipValue       string           `json:"relationshipValue,omitempty" yaml:"value,omitempty"`
	RelationshipUnit        *NodeRef         `json:"relationshipUnit,omitempty" yaml:"unit,omitempty"`
}

// KGRoot is the SINDITKG workspace root referencing the workspace's assets.
type KGRoot struct {
	ID              string    `json:"id" yaml:"id"`
	URI             string    `json:"uri" yaml:"uri"`
	Label           string    `json:"label" yaml:"label"`
	Assets          []NodeRef `json:"assets,omitempty" yaml:"assets,omitempty"`
	DataConnections []NodeRef `json:"dataConnections,omitempty" yaml:"data_connections,omitempty"`
	Position        *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

// LinkDirection controls the arrow drawn for a link.
type LinkDirection string

const (
	LinkDirectionLeft  LinkDirection = "left"
	LinkDirectionRight LinkDirection = "right"
	LinkDirectionNone  LinkDirection = "none"
)

// Link is a rendering edge between two visualizable nodes.
type Link struct {
	ID              string        `json:"id" yaml:"id"`
	SourceNodeID    string        `json:"sourceNodeId" yaml:"source"`
	TargetNodeID    string        `json:"targetNodeId" yaml:"target"`
	LinkDirection   LinkDirection `json:"linkDirection" yaml:"direction"`
	LinkDescription string        `json:"linkDescription" yaml:"description"`
	LinkWeight      float64       `json:"linkWeight" yaml:"weight"`
}

// VisualNode is one entry of the rendering view: an asset, a visualizable
// property or the workspace root. Exactly one of the pointers is set.
type VisualNode struct {
	ID       string    `json:"id" yaml:"id"`
	NodeType NodeType  `json:"nodeType" yaml:"node_type"`
	Label    string    `json:"label" yaml:"label"`
	Asset    *Asset    `json:"asset,omitempty" yaml:"asset,omitempty"`
	Property Property  `json:"property,omitempty" yaml:"property,omitempty"`
	Root     *KGRoot   `json:"root,omitempty" yaml:"root,omitempty"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
}
