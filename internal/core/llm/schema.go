package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema validates model replies against a JSON Schema before decoding them.
// The schema is compiled on first use.
type Schema struct {
	name   string
	source string

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewSchema wraps a JSON Schema document. name is used as its resource id.
func NewSchema(name, source string) *Schema {
	return &Schema{name: name, source: source}
}

func (s *Schema) load() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource(s.name, strings.NewReader(s.source)); err != nil {
			s.err = fmt.Errorf("add schema resource %s: %w", s.name, err)
			return
		}

		s.compiled, s.err = compiler.Compile(s.name)
		if s.err != nil {
			s.err = fmt.Errorf("compile schema %s: %w", s.name, s.err)
		}
	})

	return s.compiled, s.err
}

// Decode extracts the JSON payload from a model reply, validates it and
// unmarshals it into out.
func (s *Schema) Decode(reply string, out any) error {
	payload, err := ExtractJSON(reply)
	if err != nil {
		return err
	}

	schema, err := s.load()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	return nil
}
