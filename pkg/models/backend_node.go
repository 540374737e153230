package models

import (
	"bytes"
	"encoding/json"

	"github.com/sindit-io/kgsync/pkg/jsonutil"
)

// BackendNode is a node record as the knowledge graph backend returns it.
// Only uri, class_uri and label are guaranteed; everything else is read
// leniently through the accessors below.
type BackendNode map[string]json.RawMessage

// IsBackendNode reports whether the record carries string uri, class_uri and
// label fields.
func IsBackendNode(n BackendNode) bool {
	if n == nil {
		return false
	}
	for _, key := range []string{"uri", "class_uri", "label"} {
		if _, ok := n.String(key); !ok {
			return false
		}
	}
	return true
}

func (n BackendNode) URI() string {
	s, _ := n.String("uri")
	return s
}

func (n BackendNode) ClassURI() string {
	s, _ := n.String("class_uri")
	return s
}

func (n BackendNode) Label() string {
	s, _ := n.String("label")
	return s
}

// Has reports whether key is present and not JSON null.
func (n BackendNode) Has(key string) bool {
	raw, ok := n[key]
	return ok && !isNull(raw)
}

// String returns the field as a string when it is a JSON string. Null is
// not a string.
func (n BackendNode) String(key string) (string, bool) {
	raw, ok := n[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Text returns the first present field rendered as a string, so numbers and
// booleans coming back from the backend are kept.
func (n BackendNode) Text(keys ...string) string {
	for _, key := range keys {
		if n.Has(key) {
			if s := jsonutil.FlexibleStringValue(n[key]); s != "" {
				return s
			}
		}
	}
	return ""
}

func (n BackendNode) Int(key string, def int) int {
	return jsonutil.FlexibleIntValue(n[key], def)
}

func (n BackendNode) Bool(key string, def bool) bool {
	return jsonutil.FlexibleBoolValue(n[key], def)
}

// Ref decodes a reference field which the backend sends either as a bare URI
// string or as an object with a uri member.
func (n BackendNode) Ref(key string) *NodeRef {
	raw, ok := n[key]
	if !ok {
		return nil
	}
	ref, ok := decodeRef(raw)
	if !ok {
		return nil
	}
	return &ref
}

// Refs decodes an array of references. Entries that are neither a string nor
// an object with a string uri are skipped.
func (n BackendNode) Refs(key string) []NodeRef {
	raw, ok := n[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	refs := make([]NodeRef, 0, len(items))
	for _, item := range items {
		if ref, ok := decodeRef(item); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Map decodes an object field into a generic map.
func (n BackendNode) Map(key string) map[string]any {
	raw, ok := n[key]
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func decodeRef(raw json.RawMessage) (NodeRef, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return NodeRef{}, false
		}
		return NodeRef{URI: s}, true
	}
	var obj struct {
		URI *string `json:"uri"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.URI == nil || *obj.URI == "" {
		return NodeRef{}, false
	}
	return NodeRef{URI: *obj.URI}, true
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
