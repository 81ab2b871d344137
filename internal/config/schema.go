package config

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// ToJSONSchema reflects a JSON schema for t. Decimals are written as numbers
// or numeric strings and durations as Go duration strings, matching what the
// YAML loader accepts.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.Mapper = func(rt reflect.Type) *jsonschema.Schema {
		switch rt {
		case decimalType:
			return &jsonschema.Schema{
				OneOf: []*jsonschema.Schema{
					{Type: "number"},
					{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`},
				},
			}
		case durationType:
			return &jsonschema.Schema{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|ms|s|m|h))+$`}
		default:
			return nil
		}
	}

	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to marshal json schema", err)
	}

	return string(jsonSchemaBytes), nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() (string, error) {
	return ToJSONSchema(Config{})
}
