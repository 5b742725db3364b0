// Package schema validates inbound device records before they reach the
// store, so a malformed record is rejected at the boundary instead of
// degrading a relay to manual mode later.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"homesync/pkg/device"
)

// recordSchema mirrors the HomeSync wire record: "H:M" times without
// leading zeros, three-letter weekday codes, non-negative kwh.
const recordSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"applianceName": {"type": "string", "minLength": 1},
		"roomName":      {"type": "string"},
		"deviceType":    {"type": "string"},
		"relay":         {"type": "string", "minLength": 1},
		"icon":          {"type": "integer", "minimum": 0},
		"kwh":           {"type": "number", "minimum": 0},
		"startTime":     {"type": "string", "pattern": "^[0-9]{1,2}:[0-9]{1,2}$"},
		"endTime":       {"type": "string", "pattern": "^[0-9]{1,2}:[0-9]{1,2}$"},
		"days": {
			"type": "array",
			"items": {"enum": ["Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"]}
		}
	},
	"required": ["applianceName", "relay", "startTime", "endTime", "days"],
	"additionalProperties": false
}`

// Validator validates device record payloads. The schema is fixed, so it
// compiles once and is safe for concurrent use.
type Validator struct {
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRecord validates a raw JSON device record. Failures wrap
// device.ErrValidation.
func (v *Validator) ValidateRecord(raw []byte) error {
	compiled, err := v.schema()
	if err != nil {
		return fmt.Errorf("failed to compile record schema: %w", err)
	}

	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", device.ErrValidation, err)
	}
	if err := compiled.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", device.ErrValidation, err)
	}
	return nil
}

func (v *Validator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(recordSchema), &doc); err != nil {
			v.err = fmt.Errorf("failed to unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("record.json", doc); err != nil {
			v.err = fmt.Errorf("failed to add resource: %w", err)
			return
		}
		v.compiled, v.err = c.Compile("record.json")
	})
	return v.compiled, v.err
}
