package kg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sindit-io/kgsync/pkg/logging"
	"github.com/sindit-io/kgsync/pkg/uri"
)

const (
	endpointWorkspaceGet    = "ws/get"
	endpointWorkspaceList   = "ws/list"
	endpointWorkspaceSwitch = "ws/switch"

	endpointDataTypes   = "metamodel/get_data_type"
	endpointUnits       = "metamodel/get_all_units"
	endpointSearchUnits = "metamodel/search_unit"

	endpointRefreshConnections = "connection/refresh"
)

// Workspace is a named partition of the graph.
type Workspace struct {
	URI  string `json:"uri" yaml:"uri"`
	Name string `json:"name" yaml:"name"`
}

// DataType is a metamodel data type usable as propertyDataType.
type DataType struct {
	URI   string `json:"uri" yaml:"uri"`
	Label string `json:"label" yaml:"label"`
}

// Unit is a metamodel unit usable as propertyUnit.
type Unit struct {
	URI      string `json:"uri" yaml:"uri"`
	PrefName string `json:"prefName" yaml:"pref_name"`
	Symbol   string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Code     string `json:"code" yaml:"code"`
}

// GetWorkspace returns the workspace the backend currently scopes nodes to.
func (c *Client) GetWorkspace(ctx context.Context) (*Workspace, error) {
	var resp struct {
		WorkspaceURI string `json:"workspace_uri"`
	}
	if err := c.get(ctx, endpointWorkspaceGet, nil, &resp); err != nil {
		return nil, err
	}
	return &Workspace{URI: resp.WorkspaceURI, Name: uri.WorkspaceName(resp.WorkspaceURI)}, nil
}

// ListWorkspaces returns all workspaces. Entries may come back as bare URIs
// or as objects.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var raw []json.RawMessage
	if err := c.get(ctx, endpointWorkspaceList, nil, &raw); err != nil {
		return nil, err
	}

	workspaces := make([]Workspace, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			workspaces = append(workspaces, Workspace{URI: s, Name: uri.WorkspaceName(s)})
			continue
		}
		var obj struct {
			URI          string `json:"uri"`
			WorkspaceURI string `json:"workspace_uri"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			c.logger.Warn("Skipping unrecognized workspace entry", zap.String("entry", string(item)))
			continue
		}
		wsURI := obj.URI
		if wsURI == "" {
			wsURI = obj.WorkspaceURI
		}
		if wsURI == "" {
			continue
		}
		workspaces = append(workspaces, Workspace{URI: wsURI, Name: uri.WorkspaceName(wsURI)})
	}
	return workspaces, nil
}

// SwitchWorkspace makes the backend scope subsequent calls to workspaceURI.
func (c *Client) SwitchWorkspace(ctx context.Context, workspaceURI string) error {
	q := url.Values{}
	q.Set("workspace_uri", workspaceURI)
	return c.post(ctx, endpointWorkspaceSwitch, q, nil, nil)
}

func (c *Client) ListDataTypes(ctx context.Context) ([]DataType, error) {
	var types []DataType
	if err := c.get(ctx, endpointDataTypes, nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (c *Client) ListUnits(ctx context.Context) ([]Unit, error) {
	var units []Unit
	if err := c.get(ctx, endpointUnits, nil, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// SearchUnits looks up units whose name matches term.
func (c *Client) SearchUnits(ctx context.Context, term string) ([]Unit, error) {
	q := url.Values{}
	q.Set("search_term", term)

	var units []Unit
	if err := c.get(ctx, endpointSearchUnits, q, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// HealthCheck reports whether the backend API root answers 200. It never
// returns an error; failures are logged and reported as unhealthy.
func (c *Client) HealthCheck(ctx context.Context) bool {
	resp, err := c.do(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		c.logger.Warn("Backend health check failed", zap.String("error", logging.SanitizeError(err)))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// RefreshConnections asks the backend to reconnect all data connections.
func (c *Client) RefreshConnections(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, endpointRefreshConnections, nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
