package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Generate reflects T into a JSON Schema map. Profiles and history records are read tolerantly,
// so unlike a strict output schema, additional properties stay allowed and nothing is required
// beyond what the `jsonschema:"required"` tags say.
func Generate[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	return toMap(reflector.Reflect(v))
}

func toMap(s *jsonschema.Schema) (map[string]any, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey = "properties"
	typeKey       = "type"
)

// PropertyNames lists the top-level property names of a schema map.
func PropertyNames(schema map[string]any) []string {
	props, ok := schema[propertiesKey].(map[string]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(props))
	for name := range props {
		out = append(out, name)
	}
	return out
}

// PropertyType returns the "type" of a top-level property, "" when unknown.
func PropertyType(schema map[string]any, name string) string {
	props, ok := schema[propertiesKey].(map[string]any)
	if !ok {
		return ""
	}
	prop, ok := props[name].(map[string]any)
	if !ok {
		return ""
	}
	t, _ := prop[typeKey].(string)
	return t
}
