package version

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Manifest is a parsed release document: a version plus channel specific
// details. It is immutable once decoded.
type Manifest[D any] struct {
	version Version
	details D
}

// NewManifest builds a manifest from already validated parts.
func NewManifest[D any](v Version, details D) (*Manifest[D], error) {
	if v.IsZero() {
		return nil, errors.New("manifest version is required")
	}
	return &Manifest[D]{version: v, details: details}, nil
}

// ParseManifest decodes a JSON manifest.
func ParseManifest[D any](data []byte) (*Manifest[D], error) {
	var m Manifest[D]
	if err := json.Unmarshal(data, &m); err != nil {
		// Syntax errors never reach UnmarshalJSON, which adds the context
		// for everything else.
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		return nil, err
	}
	return &m, nil
}

// Version returns the release version.
func (m *Manifest[D]) Version() Version {
	return m.version
}

// Details returns the channel specific payload.
func (m *Manifest[D]) Details() D {
	return m.details
}

type manifestJSON[D any] struct {
	Version *Version `json:"version"`
	Details *D       `json:"details"`
}

func (m *Manifest[D]) UnmarshalJSON(data []byte) error {
	var raw manifestJSON[D]
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}
	if raw.Version == nil {
		return errors.New("decode manifest: missing version")
	}
	if raw.Details == nil {
		return errors.New("decode manifest: missing details")
	}
	m.version = *raw.Version
	m.details = *raw.Details
	return nil
}

func (m Manifest[D]) MarshalJSON() ([]byte, error) {
	return json.Marshal(manifestJSON[D]{Version: &m.version, Details: &m.details})
}
