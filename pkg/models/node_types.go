package models

import (
	"slices"
	"strings"
)

// NodeType is the local type tag decoded from a node's class URI fragment.
type NodeType string

const (
	NodeTypeAbstractAsset         NodeType = "AbstractAsset"
	NodeTypeConnection            NodeType = "Connection"
	NodeTypeProperty              NodeType = "Property"
	NodeTypeAbstractAssetProperty NodeType = "AbstractAssetProperty"
	NodeTypeDatabaseProperty      NodeType = "DatabaseProperty"
	NodeTypeStreamingProperty     NodeType = "StreamingProperty"
	NodeTypeTimeseriesProperty    NodeType = "TimeseriesProperty"
	NodeTypeS3ObjectProperty      NodeType = "S3ObjectProperty"
	NodeTypePropertyCollection    NodeType = "PropertyCollection"
	NodeTypeSINDITKG              NodeType = "SINDITKG"
)

var propertyNodeTypes = []NodeType{
	NodeTypeProperty,
	NodeTypeAbstractAssetProperty,
	NodeTypeDatabaseProperty,
	NodeTypeStreamingProperty,
	NodeTypeTimeseriesProperty,
	NodeTypeS3ObjectProperty,
	NodeTypePropertyCollection,
}

// Properties of these kinds are drawn on the canvas next to assets.
var visualizablePropertyTypes = []NodeType{
	NodeTypeAbstractAssetProperty,
	NodeTypeStreamingProperty,
	NodeTypeTimeseriesProperty,
	NodeTypeS3ObjectProperty,
	NodeTypePropertyCollection,
}

// IsAssetNodeType reports whether classType names an asset.
func IsAssetNodeType(classType string) bool {
	return NodeType(classType) == NodeTypeAbstractAsset
}

// IsConnectionNodeType reports whether classType names a data connection.
func IsConnectionNodeType(classType string) bool {
	return NodeType(classType) == NodeTypeConnection
}

// IsPropertyNodeType reports whether classType is any property kind,
// including collections.
func IsPropertyNodeType(classType string) bool {
	return slices.Contains(propertyNodeTypes, NodeType(classType))
}

// IsKGNodeType reports whether classType is the workspace root.
func IsKGNodeType(classType string) bool {
	return NodeType(classType) == NodeTypeSINDITKG
}

// IsVisualizablePropertyType reports whether a property kind is rendered as a node.
func IsVisualizablePropertyType(classType string) bool {
	return slices.Contains(visualizablePropertyTypes, NodeType(classType))
}

// IsValidURI accepts http(s) URLs and URNs.
func IsValidURI(uri string) bool {
	return strings.HasPrefix(uri, "http://") ||
		strings.HasPrefix(uri, "https://") ||
		strings.HasPrefix(uri, "urn:")
}

// ConnectionType is the protocol of a data connection.
type ConnectionType string

const (
	ConnectionTypeMQTT     ConnectionType = "MQTT"
	ConnectionTypeInfluxDB ConnectionType = "InfluxDB"
	ConnectionTypeS3       ConnectionType = "S3"
)

// Valid reports whether the connection type is one the backend accepts.
func (c ConnectionType) Valid() bool {
	switch c {
	case ConnectionTypeMQTT, ConnectionTypeInfluxDB, ConnectionTypeS3:
		return true
	}
	return false
}

// RelationshipType tags a directed edge between two nodes.
type RelationshipType string

const (
	RelationshipConsistOf        RelationshipType = "ConsistOf"
	RelationshipPartOf           RelationshipType = "PartOf"
	RelationshipConnectedTo      RelationshipType = "ConnectedTo"
	RelationshipDependsOn        RelationshipType = "DependsOn"
	RelationshipDerivedFrom      RelationshipType = "DerivedFrom"
	RelationshipMonitors         RelationshipType = "Monitors"
	RelationshipControls         RelationshipType = "Controls"
	RelationshipSimulates        RelationshipType = "Simulates"
	RelationshipUses             RelationshipType = "Uses"
	RelationshipCommunicatesWith RelationshipType = "CommunicatesWith"
	RelationshipIsTypeOf         RelationshipType = "IsTypeOf"
)

var relationshipTypes = []RelationshipType{
	RelationshipConsistOf,
	RelationshipPartOf,
	RelationshipConnectedTo,
	RelationshipDependsOn,
	RelationshipDerivedFrom,
	RelationshipMonitors,
	RelationshipControls,
	RelationshipSimulates,
	RelationshipUses,
	RelationshipCommunicatesWith,
	RelationshipIsTypeOf,
}

// IsRelationshipType reports whether classType is a known relationship kind.
func IsRelationshipType(classType string) bool {
	return slices.Contains(relationshipTypes, RelationshipType(classType))
}
