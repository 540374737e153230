package kg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/models"
)

const (
	endpointNodes       = "kg/nodes"
	endpointNodesByType = "kg/nodes_by_type"
	endpointNode        = "kg/node"
	endpointStream      = "kg/stream"
)

// NodePage is one page of raw backend nodes. An empty page means the listing
// is exhausted.
type NodePage = []models.BackendNode

func pageQuery(depth, skip, limit int) url.Values {
	q := url.Values{}
	q.Set("depth", strconv.Itoa(depth))
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// ListNodes returns one page of the graph with relations expanded to depth.
func (c *Client) ListNodes(ctx context.Context, depth, skip, limit int) (NodePage, error) {
	var page NodePage
	if err := c.get(ctx, endpointNodes, pageQuery(depth, skip, limit), &page); err != nil {
		return nil, err
	}
	return page, nil
}

// ListNodesByClass is ListNodes filtered server-side by class URI.
func (c *Client) ListNodesByClass(ctx context.Context, classURI string, depth, skip, limit int) (NodePage, error) {
	q := pageQuery(depth, skip, limit)
	q.Set("type_uri", classURI)

	var page NodePage
	if err := c.get(ctx, endpointNodesByType, q, &page); err != nil {
		return nil, err
	}
	return page, nil
}

// GetNode fetches a single node by local ID. A missing node is reported as
// an error matching apperrors.ErrNotFound; an empty answer is (nil, nil).
func (c *Client) GetNode(ctx context.Context, id string, depth int) (models.BackendNode, error) {
	nodeURI, err := c.codec.ToBackendURI(id)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("node_uri", nodeURI)
	q.Set("depth", strconv.Itoa(depth))

	var node models.BackendNode
	if err := c.get(ctx, endpointNode, q, &node); err != nil {
		return nil, err
	}
	if len(node) == 0 {
		return nil, nil
	}
	return node, nil
}

// CreateNode stores a new node without overwriting an existing one.
func (c *Client) CreateNode(ctx context.Context, node any) error {
	return c.UpdateNode(ctx, node, false)
}

// UpdateNode stores node. With overwrite the backend replaces the node,
// otherwise it merges the given fields into it.
func (c *Client) UpdateNode(ctx context.Context, node any, overwrite bool) error {
	q := url.Values{}
	q.Set("overwrite", strconv.FormatBool(overwrite))
	return c.post(ctx, endpointNode, q, node, nil)
}

// DeleteNode removes a node by local ID.
func (c *Client) DeleteNode(ctx context.Context, id string) error {
	nodeURI, err := c.codec.ToBackendURI(id)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("node_uri", nodeURI)
	return c.delete(ctx, endpointNode, q)
}

// StreamProperty opens the live value stream of a streaming property. The
// caller must close the returned reader; canceling ctx also ends it.
func (c *Client) StreamProperty(ctx context.Context, id string) (io.ReadCloser, error) {
	nodeURI, err := c.codec.ToBackendURI(id)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("node_uri", nodeURI)

	resp, err := c.do(ctx, http.MethodGet, endpointStream, q, nil)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Opened property stream", zap.String("property_id", id))
	return resp.Body, nil
}

// UpdateAssetNode pushes the local asset over the backend copy: the current
// node is fetched, the asset fields are overlaid and the result is stored.
func (c *Client) UpdateAssetNode(ctx context.Context, asset *models.Asset, overwrite bool) error {
	node, err := c.currentNode(ctx, asset.ID)
	if err != nil {
		return err
	}
	if err := mergeAsset(node, asset); err != nil {
		return err
	}
	return c.UpdateNode(ctx, node, overwrite)
}

// UpdatePropertyNode pushes a local property over the backend copy.
func (c *Client) UpdatePropertyNode(ctx context.Context, p models.Property, overwrite bool) error {
	node, err := c.currentNode(ctx, p.Base().ID)
	if err != nil {
		return err
	}
	if err := mergeProperty(node, p); err != nil {
		return err
	}
	return c.UpdateNode(ctx, node, overwrite)
}

// AddPropertyToAssetNode appends a property reference to the backend asset.
func (c *Client) AddPropertyToAssetNode(ctx context.Context, assetID, propertyID string) error {
	node, err := c.currentNode(ctx, assetID)
	if err != nil {
		return err
	}
	propertyURI, err := c.codec.ToBackendURI(propertyID)
	if err != nil {
		return err
	}
	refs := append(node.Refs("assetProperties"), models.NodeRef{URI: propertyURI})
	if err := setField(node, "assetProperties", refs); err != nil {
		return err
	}
	return c.UpdateNode(ctx, node, false)
}

func (c *Client) currentNode(ctx context.Context, id string) (models.BackendNode, error) {
	node, err := c.GetNode(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load node %s: %w", id, err)
	}
	if node == nil {
		return nil, fmt.Errorf("node %s: %w", id, apperrors.ErrNotFound)
	}
	return node, nil
}

// IsNotFound reports whether err means the backend does not know the node.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

func setField(node models.BackendNode, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	node[key] = data
	return nil
}
