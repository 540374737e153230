package graphstate

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/models"
	"github.com/sindit-io/kgsync/pkg/uri"
)

const unknownPropertyName = "Unknown Property"

// ProcessNode routes one raw backend record into the matching collection.
// Invalid records and unknown class types are logged and skipped. It reports
// whether the node was stored.
func (s *Store) ProcessNode(node models.BackendNode) bool {
	if !models.IsBackendNode(node) {
		s.logger.Warn("Skipping invalid backend node")
		return false
	}

	classType, err := uri.ClassTypeFromClassURI(node.ClassURI())
	if err != nil {
		s.logger.Error("Error processing node",
			zap.String("node_uri", node.URI()),
			zap.String("error", logging.SanitizeError(err)))
		return false
	}
	id, err := s.codec.FromBackendURI(node.URI())
	if err != nil {
		s.logger.Error("Error processing node",
			zap.String("node_uri", node.URI()),
			zap.String("error", logging.SanitizeError(err)))
		return false
	}

	switch {
	case models.IsAssetNodeType(classType):
		s.AddAsset(assetFromNode(id, node))
	case models.IsConnectionNodeType(classType):
		s.AddConnection(connectionFromNode(id, node))
	case models.IsPropertyNodeType(classType):
		s.AddProperty(propertyFromNode(id, models.NodeType(classType), node))
	case models.IsKGNodeType(classType):
		s.AddRoot(rootFromNode(id, node))
	case models.IsRelationshipType(classType):
		s.AddRelationship(relationshipFromNode(id, models.RelationshipType(classType), node))
	default:
		s.logger.Warn("Unknown node type encountered",
			zap.String("class_type", classType),
			zap.String("node_uri", node.URI()))
		return false
	}
	return true
}

func assetFromNode(id string, node models.BackendNode) models.Asset {
	asset := models.Asset{
		ID:              id,
		Label:           node.Label(),
		Description:     node.Text("assetDescription", "description"),
		AssetProperties: node.Refs("assetProperties"),
	}
	if ref := node.Ref("assetType"); ref != nil {
		asset.AssetType = ref.URI
	}
	if asset.AssetProperties == nil {
		asset.AssetProperties = []models.NodeRef{}
	}
	return asset
}

func connectionFromNode(id string, node models.BackendNode) models.Connection {
	return models.Connection{
		ID:             id,
		ConnectionName: node.Label(),
		Description:    node.Text("connectionDescription", "description"),
		Host:           node.Text("host"),
		Port:           node.Int("port", 0),
		ConnectionType: models.ConnectionType(node.Text("type", "connectionType")),
		IsConnected:    node.Bool("isConnected", false),
	}
}

func rootFromNode(id string, node models.BackendNode) models.KGRoot {
	return models.KGRoot{
		ID:              id,
		URI:             node.URI(),
		Label:           node.Label(),
		Assets:          node.Refs("assets"),
		DataConnections: node.Refs("dataConnections"),
	}
}

func relationshipFromNode(id string, kind models.RelationshipType, node models.BackendNode) models.Relationship {
	r := models.Relationship{
		ID:                      id,
		RelationshipType:        kind,
		RelationshipDescription: node.Text("relationshipDescription"),
		RelationshipValue:       node.Text("relationshipValue"),
		RelationshipUnit:        node.Ref("relationshipUnit"),
	}
	if ref := node.Ref("relationshipSource"); ref != nil {
		r.RelationshipSource = *ref
	}
	if ref := node.Ref("relationshipTarget"); ref != nil {
		r.RelationshipTarget = *ref
	}
	return r
}

// propertyFromNode builds the property variant for kind. The description
// prefers propertyDescription over description; the name falls back to the
// label and then to the last segment of the ID.
func propertyFromNode(id string, kind models.NodeType, node models.BackendNode) models.Property {
	p := models.NewProperty(kind)
	b := p.Base()
	b.ID = id
	b.PropertyName = propertyName(id, node)
	b.Description = node.Text("propertyDescription", "description")
	b.PropertyDataType = node.Ref("propertyDataType")
	b.PropertyUnit = node.Ref("propertyUnit")
	b.PropertyValue = node.Text("propertyValue")
	b.PropertyValueTimestamp = node.Text("propertyValueTimestamp")
	b.PropertyConnection = node.Ref("propertyConnection")

	switch v := p.(type) {
	case *models.DatabaseProperty:
		v.Query = node.Text("query")
	case *models.TimeseriesProperty:
		v.Query = node.Text("query")
		v.TimeseriesIdentifiers = node.Map("timeseriesIdentifiers")
		v.TimeseriesRetrievalMethod = node.Text("timeseriesRetrievalMethod")
		v.TimeseriesTags = node.Map("timeseriesTags")
	case *models.StreamingProperty:
		v.StreamingTopic = node.Text("streamingTopic")
		v.StreamingPath = node.Text("streamingPath")
	case *models.S3ObjectProperty:
		v.Bucket = node.Text("bucket")
		v.Key = node.Text("key")
	case *models.PropertyCollection:
		v.CollectionProperties = node.Refs("collectionProperties")
		if v.CollectionProperties == nil {
			v.CollectionProperties = []models.NodeRef{}
		}
	}
	return p
}

func propertyName(id string, node models.BackendNode) string {
	if name := node.Text("propertyName"); name != "" {
		return name
	}
	if label := node.Label(); label != "" {
		return label
	}
	if i := strings.LastIndex(id, "/"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	if id != "" {
		return id
	}
	return unknownPropertyName
}
