package kg

import (
	"context"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/models"
)

const (
	endpointAsset              = "kg/asset"
	endpointAssetProperty      = "kg/asset_property"
	endpointDatabaseProperty   = "kg/database_property"
	endpointStreamingProperty  = "kg/streaming_property"
	endpointTimeseriesProperty = "kg/timeseries_property"
	endpointS3Property         = "kg/s3_object_property"
	endpointPropertyCollection = "kg/property_collection"
	endpointConnection         = "kg/connection"
)

type assetPayload struct {
	URI              string           `json:"uri"`
	Label            string           `json:"label"`
	AssetDescription string           `json:"assetDescription"`
	AssetType        *models.NodeRef  `json:"assetType,omitempty"`
	AssetProperties  []models.NodeRef `json:"assetProperties"`
}

type propertyPayload struct {
	URI                 string          `json:"uri"`
	Label               string          `json:"label"`
	PropertyName        string          `json:"propertyName"`
	PropertyDescription string          `json:"propertyDescription"`
	PropertyDataType    *models.NodeRef `json:"propertyDataType,omitempty"`
	PropertyUnit        *models.NodeRef `json:"propertyUnit,omitempty"`
	PropertyValue       string          `json:"propertyValue,omitempty"`
	PropertyConnection  *models.NodeRef `json:"propertyConnection,omitempty"`
}

type databasePropertyPayload struct {
	propertyPayload
	Query string `json:"query"`
}

type streamingPropertyPayload struct {
	propertyPayload
	StreamingTopic string `json:"streamingTopic"`
	StreamingPath  string `json:"streamingPath"`
}

type timeseriesPropertyPayload struct {
	propertyPayload
	Query                     string         `json:"query,omitempty"`
	TimeseriesIdentifiers     map[string]any `json:"timeseriesIdentifiers,omitempty"`
	TimeseriesRetrievalMethod string         `json:"timeseriesRetrievalMethod,omitempty"`
	TimeseriesTags            map[string]any `json:"timeseriesTags,omitempty"`
}

type s3PropertyPayload struct {
	propertyPayload
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type propertyCollectionPayload struct {
	propertyPayload
	CollectionProperties []models.NodeRef `json:"collectionProperties"`
}

type connectionPayload struct {
	URI                   string `json:"uri"`
	Label                 string `json:"label"`
	ConnectionDescription string `json:"connectionDescription"`
	Host                  string `json:"host"`
	Port                  int    `json:"port"`
	Type                  string `json:"type"`
}

// CreateAssetNode stores a new asset.
func (c *Client) CreateAssetNode(ctx context.Context, asset *models.Asset) error {
	payload, err := c.assetPayload(asset)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointAsset, nil, payload, nil)
}

// CreateAbstractPropertyNode stores a static-value property.
func (c *Client) CreateAbstractPropertyNode(ctx context.Context, p *models.AbstractAssetProperty) error {
	base, err := c.propertyPayload(&p.PropertyBase)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointAssetProperty, nil, base, nil)
}

// CreateDatabasePropertyNode stores a query-backed property.
func (c *Client) CreateDatabasePropertyNode(ctx context.Context, p *models.DatabaseProperty) error {
	base, err := c.connectedPropertyPayload(&p.PropertyBase)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointDatabaseProperty, nil, databasePropertyPayload{
		propertyPayload: *base,
		Query:           p.Query,
	}, nil)
}

// CreateStreamingPropertyNode stores a property fed by a live topic.
func (c *Client) CreateStreamingPropertyNode(ctx context.Context, p *models.StreamingProperty) error {
	base, err := c.connectedPropertyPayload(&p.PropertyBase)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointStreamingProperty, nil, streamingPropertyPayload{
		propertyPayload: *base,
		StreamingTopic:  p.StreamingTopic,
		StreamingPath:   p.StreamingPath,
	}, nil)
}

// CreateTimeseriesPropertyNode stores a property backed by a time series query.
func (c *Client) CreateTimeseriesPropertyNode(ctx context.Context, p *models.TimeseriesProperty) error {
	base, err := c.connectedPropertyPayload(&p.PropertyBase)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointTimeseriesProperty, nil, timeseriesPropertyPayload{
		propertyPayload:           *base,
		Query:                     p.Query,
		TimeseriesIdentifiers:     p.TimeseriesIdentifiers,
		TimeseriesRetrievalMethod: p.TimeseriesRetrievalMethod,
		TimeseriesTags:            p.TimeseriesTags,
	}, nil)
}

// CreateS3PropertyNode stores a property pointing at an object in a bucket.
func (c *Client) CreateS3PropertyNode(ctx context.Context, p *models.S3ObjectProperty) error {
	base, err := c.connectedPropertyPayload(&p.PropertyBase)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointS3Property, nil, s3PropertyPayload{
		propertyPayload: *base,
		Bucket:          p.Bucket,
		Key:             p.Key,
	}, nil)
}

// CreatePropertyCollectionNode stores a property that groups other properties.
func (c *Client) CreatePropertyCollectionNode(ctx context.Context, p *models.PropertyCollection) error {
	base, err := c.propertyPayload(&p.PropertyBase)
	if err != nil {
		return err
	}
	refs := p.CollectionProperties
	if refs == nil {
		refs = []models.NodeRef{}
	}
	return c.post(ctx, endpointPropertyCollection, nil, propertyCollectionPayload{
		propertyPayload:      *base,
		CollectionProperties: refs,
	}, nil)
}

// CreatePropertyNode dispatches to the typed create call of the variant.
func (c *Client) CreatePropertyNode(ctx context.Context, p models.Property) error {
	switch v := p.(type) {
	case *models.AbstractAssetProperty:
		return c.CreateAbstractPropertyNode(ctx, v)
	case *models.DatabaseProperty:
		return c.CreateDatabasePropertyNode(ctx, v)
	case *models.StreamingProperty:
		return c.CreateStreamingPropertyNode(ctx, v)
	case *models.TimeseriesProperty:
		return c.CreateTimeseriesPropertyNode(ctx, v)
	case *models.S3ObjectProperty:
		return c.CreateS3PropertyNode(ctx, v)
	case *models.PropertyCollection:
		return c.CreatePropertyCollectionNode(ctx, v)
	default:
		base, err := c.propertyPayload(p.Base())
		if err != nil {
			return err
		}
		return c.CreateNode(ctx, base)
	}
}

// CreateConnectionNode stores a data connection.
func (c *Client) CreateConnectionNode(ctx context.Context, conn *models.Connection) error {
	if !conn.ConnectionType.Valid() {
		return apperrors.NewValidationError("connectionType", "unsupported connection type %q", conn.ConnectionType)
	}
	nodeURI, err := c.codec.ToBackendURI(conn.ID)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointConnection, nil, connectionPayload{
		URI:                   nodeURI,
		Label:                 conn.ConnectionName,
		ConnectionDescription: conn.Description,
		Host:                  conn.Host,
		Port:                  conn.Port,
		Type:                  string(conn.ConnectionType),
	}, nil)
}

func (c *Client) assetPayload(asset *models.Asset) (*assetPayload, error) {
	nodeURI, err := c.codec.ToBackendURI(asset.ID)
	if err != nil {
		return nil, err
	}
	payload := &assetPayload{
		URI:              nodeURI,
		Label:            asset.Label,
		AssetDescription: asset.Description,
		AssetProperties:  asset.AssetProperties,
	}
	if payload.AssetProperties == nil {
		payload.AssetProperties = []models.NodeRef{}
	}
	if asset.AssetType != "" {
		payload.AssetType = &models.NodeRef{URI: asset.AssetType}
	}
	return payload, nil
}

func (c *Client) propertyPayload(b *models.PropertyBase) (*propertyPayload, error) {
	nodeURI, err := c.codec.ToBackendURI(b.ID)
	if err != nil {
		return nil, err
	}
	return &propertyPayload{
		URI:                 nodeURI,
		Label:               b.PropertyName,
		PropertyName:        b.PropertyName,
		PropertyDescription: b.Description,
		PropertyDataType:    b.PropertyDataType,
		PropertyUnit:        b.PropertyUnit,
		PropertyValue:       b.PropertyValue,
		PropertyConnection:  b.PropertyConnection,
	}, nil
}

// connectedPropertyPayload is propertyPayload for variants that read from a
// connection and cannot be stored without one.
func (c *Client) connectedPropertyPayload(b *models.PropertyBase) (*propertyPayload, error) {
	if b.PropertyConnection == nil || b.PropertyConnection.URI == "" {
		return nil, apperrors.NewValidationError("propertyConnection", "%s %s requires a connection", b.NodeType, b.ID)
	}
	return c.propertyPayload(b)
}

// mergeAsset overlays the editable asset fields onto a backend node.
func mergeAsset(node models.BackendNode, asset *models.Asset) error {
	refs := asset.AssetProperties
	if refs == nil {
		refs = []models.NodeRef{}
	}
	fields := map[string]any{
		"label":            asset.Label,
		"assetDescription": asset.Description,
		"assetProperties":  refs,
	}
	return setFields(node, fields)
}

// mergeProperty overlays the editable property fields onto a backend node.
func mergeProperty(node models.BackendNode, p models.Property) error {
	b := p.Base()
	fields := map[string]any{
		"label":               b.PropertyName,
		"propertyName":        b.PropertyName,
		"propertyDescription": b.Description,
	}
	if b.PropertyDataType != nil {
		fields["propertyDataType"] = b.PropertyDataType
	}
	if b.PropertyUnit != nil {
		fields["propertyUnit"] = b.PropertyUnit
	}
	if b.PropertyValue != "" {
		fields["propertyValue"] = b.PropertyValue
	}
	if b.PropertyConnection != nil {
		fields["propertyConnection"] = b.PropertyConnection
	}

	switch v := p.(type) {
	case *models.DatabaseProperty:
		fields["query"] = v.Query
	case *models.StreamingProperty:
		fields["streamingTopic"] = v.StreamingTopic
		fields["streamingPath"] = v.StreamingPath
	case *models.TimeseriesProperty:
		fields["query"] = v.Query
		fields["timeseriesRetrievalMethod"] = v.TimeseriesRetrievalMethod
		if v.TimeseriesIdentifiers != nil {
			fields["timeseriesIdentifiers"] = v.TimeseriesIdentifiers
		}
		if v.TimeseriesTags != nil {
			fields["timeseriesTags"] = v.TimeseriesTags
		}
	case *models.S3ObjectProperty:
		fields["bucket"] = v.Bucket
		fields["key"] = v.Key
	case *models.PropertyCollection:
		refs := v.CollectionProperties
		if refs == nil {
			refs = []models.NodeRef{}
		}
		fields["collectionProperties"] = refs
	}
	return setFields(node, fields)
}

func setFields(node models.BackendNode, fields map[string]any) error {
	for key, value := range fields {
		if err := setField(node, key, value); err != nil {
			return err
		}
	}
	return nil
}
