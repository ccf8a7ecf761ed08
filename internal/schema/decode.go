// Package schema defines the strongly-typed records persisted by the
// enrichment core: config, lock, plan, scenarios, surface inventory,
// ledgers, progress, reports, and LM messages. Every persisted JSON object
// rejects unknown fields, decoded through DecodeStrict so that behavior is
// uniform across every record type rather than ad hoc per type.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeStrict unmarshals data into v, rejecting unknown fields, matching
// the data model's "every persisted JSON object rejects unknown fields"
// invariant.
func DecodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("decode %T: trailing content after JSON value", v)
		}
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

// ErrSchemaVersion is returned by loaders when a record's schema_version is
// unsupported. Loaders fail closed on mismatch.
var ErrSchemaVersion = errors.New("unsupported schema_version")

// CheckVersion fails closed when got does not match want.
func CheckVersion(artifact string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: %w: got %d want %d", artifact, ErrSchemaVersion, got, want)
	}
	return nil
}
