package kg

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sindit-io/kgsync/pkg/apperrors"
	"github.com/sindit-io/kgsync/pkg/models"
)

const (
	endpointRelationships = "kg/relationships"
	endpointRelationship  = "kg/relationship"
)

type relationshipPayload struct {
	URI                     string          `json:"uri"`
	Label                   string          `json:"label"`
	RelationshipType        string          `json:"relationshipType"`
	RelationshipSource      models.NodeRef  `json:"relationshipSource"`
	RelationshipTarget      models.NodeRef  `json:"relationshipTarget"`
	RelationshipDescription string          `json:"relationshipDescription,omitempty"`
	RelationshipValue       string          `json:"relationshipValue,omitempty"`
	RelationshipUnit        *models.NodeRef `json:"relationshipUnit,omitempty"`
}

// ListRelationships returns one page of relationship nodes.
func (c *Client) ListRelationships(ctx context.Context, skip, limit int) (NodePage, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var page NodePage
	if err := c.get(ctx, endpointRelationships, q, &page); err != nil {
		return nil, err
	}
	return page, nil
}

// CreateRelationship stores a directed typed edge.
func (c *Client) CreateRelationship(ctx context.Context, r *models.Relationship) error {
	if !models.IsRelationshipType(string(r.RelationshipType)) {
		return apperrors.NewValidationError("relationshipType", "unknown relationship type %q", r.RelationshipType)
	}
	if r.RelationshipSource.URI == "" || r.RelationshipTarget.URI == "" {
		return apperrors.NewValidationError("relationship", "source and target are required")
	}
	nodeURI, err := c.codec.ToBackendURI(r.ID)
	if err != nil {
		return err
	}
	return c.post(ctx, endpointRelationship, nil, relationshipPayload{
		URI:                     nodeURI,
		Label:                   string(r.RelationshipType),
		RelationshipType:        string(r.RelationshipType),
		RelationshipSource:      r.RelationshipSource,
		RelationshipTarget:      r.RelationshipTarget,
		RelationshipDescription: r.RelationshipDescription,
		RelationshipValue:       r.RelationshipValue,
		RelationshipUnit:        r.RelationshipUnit,
	}, nil)
}
