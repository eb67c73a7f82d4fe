package ethtxn

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed intent.schema.json
var intentSchemaJSON []byte

var (
	intentSchemaOnce sync.Once
	intentSchema     *gojsonschema.Schema
	intentSchemaErr  error
)

func loadIntentSchema() (*gojsonschema.Schema, error) {
	intentSchemaOnce.Do(func() {
		intentSchema, intentSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(intentSchemaJSON))
	})
	return intentSchema, intentSchemaErr
}

// ParseIntentJSON decodes a JSON transaction intent. The document is first validated
// against the intent schema, numbers are then decoded as json.Number so integers
// beyond 2^53 keep their precision.
func ParseIntentJSON(data []byte) (*TransactionIntent, error) {
	schema, err := loadIntentSchema()
	if err != nil {
		return nil, fmt.Errorf("ethtxn: load intent schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidIntent, strings.Join(msgs, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var intent TransactionIntent
	if err := dec.Decode(&intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	return &intent, nil
}
