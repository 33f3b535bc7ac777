package llms

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is a callable the model may invoke by name with JSON arguments.
type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the arguments object.
	Parameters *jsonschema.Schema

	execute func(arguments string) (string, error)
}

// NewTool builds a tool whose argument schema is reflected from the
// callback's parameter struct. Arguments arrive as a JSON string and are
// decoded into T before the callback runs.
func NewTool[T any](name string, description string, execute func(T) (string, error)) Tool {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(new(T))
	schema.Version = ""

	return Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
		execute: func(arguments string) (string, error) {
			if arguments == "" {
				arguments = "{}"
			}
			var parameters T
			if err := json.Unmarshal([]byte(arguments), &parameters); err != nil {
				return "", fmt.Errorf("failed to decode tool arguments: %w", err)
			}
			return execute(parameters)
		},
	}
}

// Execute runs the tool against raw JSON arguments.
func (t Tool) Execute(arguments string) (string, error) {
	if t.execute == nil {
		return "", fmt.Errorf("tool %q has no implementation", t.Name)
	}
	return t.execute(arguments)
}
