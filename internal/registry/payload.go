package registry

import (
	"bytes"
	"io"
	"os"

	"github.com/conneroisu/blockwright/internal/errors"
	"gopkg.in/yaml.v3"
)

// LoadPayload decodes an initialization payload. YAML and JSON documents
// are both accepted.
func LoadPayload(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "failed to read payload", err)
	}

	return ParsePayload(data)
}

// ParsePayload decodes an initialization payload held in memory.
func ParsePayload(data []byte) (*Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "payload is empty", nil)
	}

	var p Payload
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.NewInputError(errors.ErrCodeMalformedDocument, "failed to decode payload", err)
	}
	if p.MetadataMap == nil {
		p.MetadataMap = make(map[string]Metadata)
	}

	return &p, nil
}

// LoadPayloadFile reads and decodes the payload stored at path.
func LoadPayloadFile(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "failed to read payload", err).
			WithContext("path", path)
	}

	p, err := ParsePayload(data)
	if err != nil {
		if be, ok := err.(*errors.BuilderError); ok {
			return nil, be.WithContext("path", path)
		}

		return nil, err
	}

	return p, nil
}
