package descriptor

import (
	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the descriptor file format.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := r.Reflect(new(document))
	s.Title = "sparkfx particle effect"
	s.Description = "Particle effect descriptor (YAML, JSON or TOML)"
	return s
}

func enumSchema(names []string) *jsonschema.Schema {
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	return &jsonschema.Schema{Type: "string", Enum: values}
}

func (SimulationSpace) JSONSchema() *jsonschema.Schema     { return enumSchema(spaceNames[:]) }
func (SimulationCondition) JSONSchema() *jsonschema.Schema { return enumSchema(conditionNames[:]) }
func (ShapeDimension) JSONSchema() *jsonschema.Schema      { return enumSchema(dimensionNames[:]) }
