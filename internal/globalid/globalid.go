// Package globalid implements opaque, type-tagged identifiers exchanged
// with clients. The encoding is an injectable strategy: the engine only
// depends on the Codec interface and never assumes a particular wire form.
package globalid

import (
	"encoding/base64"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// ID pairs a schema type name with a tenant-internal identifier.
type ID struct {
	Type     string
	Internal string
}

func (id ID) String() string { return id.Type + ":" + id.Internal }

// Codec converts between internal IDs and their client-facing encoded form.
type Codec interface {
	Encode(id ID) (string, error)
	Decode(encoded string) (ID, error)
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type wireID struct {
	Type     string `json:"t"`
	Internal string `json:"i"`
}

// Base64Codec is the default Codec: compact JSON wrapped in unpadded
// URL-safe base64. The encoding is deliberately unremarkable; tenants that
// need signed or versioned IDs inject their own Codec.
type Base64Codec struct{}

func NewBase64Codec() *Base64Codec { return &Base64Codec{} }

func (c *Base64Codec) Encode(id ID) (string, error) {
	if id.Type == "" {
		return "", fmt.Errorf("globalid: cannot encode id with empty type")
	}
	raw, err := json.Marshal(wireID{Type: id.Type, Internal: id.Internal})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (c *Base64Codec) Decode(encoded string) (ID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return ID{}, fmt.Errorf("globalid: malformed id: %w", err)
	}
	var w wireID
	if err := json.Unmarshal(raw, &w); err != nil {
		return ID{}, fmt.Errorf("globalid: malformed id payload: %w", err)
	}
	if w.Type == "" {
		return ID{}, fmt.Errorf("globalid: decoded id has empty type")
	}
	return ID{Type: w.Type, Internal: w.Internal}, nil
}
