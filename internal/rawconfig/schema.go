package rawconfig

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// shapeSchema describes only the document's gross shape: that version is a
// number, that scopes/global_macros (when present) are lists of mappings,
// and that nothing else is allowed at the top level. It intentionally does
// not know about message_type/condition_type/action enums or per-field
// bounds -- that precise validation is configparser's job and produces
// errors localized with Node.Location(). This pass exists to turn "scopes:
// a string" into one clear error instead of a panic or a confusing
// type-assertion failure three layers into the parser.
const shapeSchemaSource = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version"],
  "properties": {
    "version": {"type": "integer"},
    "scopes": {
      "type": "array",
      "items": {"type": "object"}
    },
    "global_macros": {
      "type": "array",
      "items": {"type": "object"}
    }
  },
  "additionalProperties": false
}`

var compiledShapeSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("shape.json", bytes.NewReader([]byte(shapeSchemaSource))); err != nil {
		panic(fmt.Errorf("mmpd: invalid embedded shape schema: %w", err))
	}
	schema, err := compiler.Compile("shape.json")
	if err != nil {
		panic(fmt.Errorf("mmpd: invalid embedded shape schema: %w", err))
	}
	compiledShapeSchema = schema
}

// ValidateShape runs the gross-shape pre-validation pass over the raw YAML
// source, before any field-precise parsing happens. It reports the first
// structural violation it finds; fine-grained, per-field errors are left to
// configparser.
func ValidateShape(source []byte) error {
	var generic interface{}
	if err := yaml.Unmarshal(source, &generic); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	// jsonschema validates against plain JSON-ish values (map[string]any,
	// []any, string/float64/bool/nil); yaml.v3 decodes mappings into
	// map[string]interface{} already when the target is interface{}, but
	// integer scalars decode as int, which jsonschema's "integer" check
	// accepts directly.
	normalized := normalizeForSchema(generic)

	if err := compiledShapeSchema.Validate(normalized); err != nil {
		return fmt.Errorf("configuration has an invalid shape: %w", err)
	}
	return nil
}

// normalizeForSchema converts map[interface{}]interface{} nodes (which
// older yaml decodes can produce for non-string keys) into
// map[string]interface{} so jsonschema's validator, which only understands
// JSON-shaped values, can walk the tree.
func normalizeForSchema(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeForSchema(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeForSchema(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeForSchema(val)
		}
		return out
	default:
		return v
	}
}
