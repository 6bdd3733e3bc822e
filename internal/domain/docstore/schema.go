package docstore

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// Schema validates documents against a JSON Schema reflected from their Go type.
// Constraints come from jsonschema struct tags, e.g. `jsonschema:"minLength=6"`.
type Schema struct {
	compiled *jschema.Schema
}

// SchemaFor reflects and compiles the schema of v. Formats such as email and
// date-time are asserted, not just annotated.
func SchemaFor(v any, name string) (*Schema, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	reflected := r.Reflect(v)

	data, err := json.Marshal(reflected)
	if err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "marshal reflected schema")
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "parse reflected schema")
	}

	url := name + ".schema.json"
	c := jschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(url, doc); err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "add schema resource")
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, oops.With("schema", name).Wrapf(err, "compile schema")
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks a decoded JSON document and reports failures as INVALID_INPUT
// with one message per offending field.
func (s *Schema) Validate(doc map[string]any) error {
	if s == nil {
		return nil
	}
	err := s.compiled.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jschema.ValidationError
	if !errors.As(err, &ve) {
		return common.InvalidInput("Validation failed", common.FieldErrors{"document": err.Error()})
	}
	fields := common.FieldErrors{}
	collectLeaves(ve, fields)
	return fields.Err()
}

func collectLeaves(ve *jschema.ValidationError, fields common.FieldErrors) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectLeaves(cause, fields)
		}
		return
	}
	field := strings.Join(ve.InstanceLocation, ".")
	if field == "" {
		field = "document"
	}
	keyword := "schema"
	if ve.ErrorKind != nil {
		if path := ve.ErrorKind.KeywordPath(); len(path) > 0 {
			keyword = strings.Join(path, "/")
		}
	}
	fields.Add(field, "must satisfy "+keyword)
}
