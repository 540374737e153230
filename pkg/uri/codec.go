// Package uri maps between local node IDs and the fully qualified URIs the
// knowledge graph backend uses, and decodes type tags from class URIs.
package uri

import (
	"strings"

	"github.com/sindit-io/kgsync/pkg/apperrors"
)

const baseURIKey = "SINDIT_BACKEND_API_BASE_URI"

// Codec is constructed once per session with the backend's base URI.
type Codec struct {
	baseURI string
}

func NewCodec(baseURI string) *Codec {
	return &Codec{baseURI: baseURI}
}

func (c *Codec) BaseURI() string {
	return c.baseURI
}

// ToBackendURI concatenates the base URI with localID.
func (c *Codec) ToBackendURI(localID string) (string, error) {
	if c.baseURI == "" {
		return "", apperrors.NewConfigError(baseURIKey, "base URI is not configured")
	}
	return c.baseURI + localID, nil
}

// FromBackendURI returns the local ID of a backend URI. Foreign http:// URIs
// that do not live under the base URI keep everything but the scheme.
func (c *Codec) FromBackendURI(uri string) (string, error) {
	if strings.HasPrefix(uri, "http://") && (c.baseURI == "" || !strings.HasPrefix(uri, c.baseURI)) {
		return strings.TrimPrefix(uri, "http://"), nil
	}
	if c.baseURI == "" {
		return "", apperrors.NewConfigError(baseURIKey, "base URI is not configured")
	}
	_, rest, found := strings.Cut(uri, c.baseURI)
	if !found {
		return "", apperrors.NewConfigError(baseURIKey, "base URI %s not found in %s", c.baseURI, uri)
	}
	return rest, nil
}

// LocalIDOrURI is FromBackendURI for callers that only need a lookup key; on
// failure the URI itself is returned.
func (c *Codec) LocalIDOrURI(uri string) string {
	id, err := c.FromBackendURI(uri)
	if err != nil {
		return uri
	}
	return id
}

// ClassTypeFromClassURI returns the fragment after '#'.
func ClassTypeFromClassURI(classURI string) (string, error) {
	_, fragment, found := strings.Cut(classURI, "#")
	if !found {
		return "", apperrors.NewConfigError("class_uri", "class URI %q has no fragment", classURI)
	}
	return fragment, nil
}

// WorkspaceName is the fragment of a workspace URI, or the whole URI when
// there is none.
func WorkspaceName(workspaceURI string) string {
	if _, fragment, found := strings.Cut(workspaceURI, "#"); found {
		return fragment
	}
	return workspaceURI
}
