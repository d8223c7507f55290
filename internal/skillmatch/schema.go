package skillmatch

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed result.schema.json
var resultSchemaJSON []byte

const resultSchemaURL = "result.schema.json"

var (
	resultSchemaOnce sync.Once
	resultSchema     *jsonschema.Schema
	resultSchemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	resultSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(resultSchemaURL, bytes.NewReader(resultSchemaJSON)); err != nil {
			resultSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		resultSchema, resultSchemaErr = compiler.Compile(resultSchemaURL)
	})
	return resultSchema, resultSchemaErr
}

// ValidateValue checks an already-decoded JSON value against the result schema.
func ValidateValue(v any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	return schema.Validate(v)
}

// Validate checks the final record's types and required fields.
func Validate(r Result) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return ValidateValue(v)
}
