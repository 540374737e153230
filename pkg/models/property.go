package models

// Property is the closed sum of property variants. Every variant embeds
// PropertyBase, whose pointer methods are promoted to the variant pointer.
type Property interface {
	Base() *PropertyBase
	Kind() NodeType
}

// PropertyBase holds the fields shared by every property variant.
type PropertyBase struct {
	ID                     string    `json:"id" yaml:"id"`
	NodeType               NodeType  `json:"nodeType" yaml:"node_type"`
	PropertyName           string    `json:"propertyName" yaml:"property_name"`
	Description            string    `json:"description" yaml:"description"`
	PropertyDataType       *NodeRef  `json:"propertyDataType,omitempty" yaml:"data_type,omitempty"`
	PropertyUnit           *NodeRef  `json:"propertyUnit,omitempty" yaml:"unit,omitempty"`
	PropertyValue          string    `json:"propertyValue,omitempty" yaml:"value,omitempty"`
	PropertyValueTimestamp string    `json:"propertyValueTimestamp,omitempty" yaml:"value_timestamp,omitempty"`
	PropertyConnection     *NodeRef  `json:"propertyConnection,omitempty" yaml:"connection,omitempty"`
	Position               *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

func (b *PropertyBase) Base() *PropertyBase { return b }

func (b *PropertyBase) Kind() NodeType { return b.NodeType }

// GenericProperty is a plain Property node without a more specific class.
type GenericProperty struct {
	PropertyBase `yaml:",inline"`
}

type AbstractAssetProperty struct {
	PropertyBase `yaml:",inline"`
}

type DatabaseProperty struct {
	PropertyBase `yaml:",inline"`
	Query        string `json:"query,omitempty" yaml:"query,omitempty"`
}

type TimeseriesProperty struct {
	PropertyBase              `yaml:",inline"`
	Query                     string         `json:"query,omitempty" yaml:"query,omitempty"`
	TimeseriesIdentifiers     map[string]any `json:"timeseriesIdentifiers,omitempty" yaml:"identifiers,omitempty"`
	TimeseriesRetrievalMethod string         `json:"timeseriesRetrievalMethod,omitempty" yaml:"retrieval_method,omitempty"`
	TimeseriesTags            map[string]any `json:"timeseriesTags,omitempty" yaml:"tags,omitempty"`
}

type StreamingProperty struct {
	PropertyBase   `yaml:",inline"`
	StreamingTopic string `json:"streamingTopic,omitempty" yaml:"topic,omitempty"`
	StreamingPath  string `json:"streamingPath,omitempty" yaml:"path,omitempty"`
}

type S3ObjectProperty struct {
	PropertyBase `yaml:",inline"`
	Bucket       string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Key          string `json:"key,omitempty" yaml:"key,omitempty"`
}

// PropertyCollection groups other properties by reference. Order is preserved.
type PropertyCollection struct {
	PropertyBase         `yaml:",inline"`
	CollectionProperties []NodeRef `json:"collectionProperties" yaml:"collection_properties"`
}

// NewProperty returns an empty variant for kind with the base type tag set.
// Unknown kinds fall back to GenericProperty.
func NewProperty(kind NodeType) Property {
	var p Property
	switch kind {
	case NodeTypeAbstractAssetProperty:
		p = &AbstractAssetProperty{}
	case NodeTypeDatabaseProperty:
		p = &DatabaseProperty{}
	case NodeTypeTimeseriesProperty:
		p = &TimeseriesProperty{}
	case NodeTypeStreamingProperty:
		p = &StreamingProperty{}
	case NodeTypeS3ObjectProperty:
		p = &S3ObjectProperty{}
	case NodeTypePropertyCollection:
		p = &PropertyCollection{}
	default:
		p = &GenericProperty{}
	}
	p.Base().NodeType = kind
	return p
}

// PropertyLabel is the display label of a property, defaulting to its name.
func PropertyLabel(p Property) string {
	if name := p.Base().PropertyName; name != "" {
		return name
	}
	return p.Base().ID
}

// VariantKind is the node type implied by the concrete variant of p.
func VariantKind(p Property) NodeType {
	switch p.(type) {
	case *AbstractAssetProperty:
		return NodeTypeAbstractAssetProperty
	case *DatabaseProperty:
		return NodeTypeDatabaseProperty
	case *TimeseriesProperty:
		return NodeTypeTimeseriesProperty
	case *StreamingProperty:
		return NodeTypeStreamingProperty
	case *S3ObjectProperty:
		return NodeTypeS3ObjectProperty
	case *PropertyCollection:
		return NodeTypePropertyCollection
	default:
		return NodeTypeProperty
	}
}
