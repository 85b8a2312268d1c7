package compat

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/routecodex/gateway/internal/gwerrors"
)

// PropertyType enumerates the value shapes a tool-argument schema checks.
type PropertyType string

const (
	PropertyString      PropertyType = "string"
	PropertyObject      PropertyType = "object"
	PropertyStringArray PropertyType = "array<string>"
)

// PropertySchema constrains one argument of a tool call.
type PropertySchema struct {
	Type     PropertyType
	MinItems int
}

// ToolSchema is the declared argument contract for one function name.
type ToolSchema struct {
	Name       string
	Required   []string
	Properties map[string]PropertySchema
}

// SchemaRegistry resolves a function name to its declared schema.
type SchemaRegistry map[string]ToolSchema

// ValidateToolCalls walks every assistant tool_calls[*] entry in a
// response body and rejects it if the function name is unknown, the
// arguments aren't valid JSON, a required key is missing, an unknown key
// is present, or a value's type disagrees with the declared schema.
func ValidateToolCalls(body []byte, registry SchemaRegistry) error {
	calls := gjson.GetBytes(body, "choices.0.message.tool_calls")
	if !calls.IsArray() {
		return nil
	}
	for _, call := range calls.Array() {
		name := call.Get("function.name").String()
		schema, ok := registry[name]
		if !ok {
			return badRequest(fmt.Sprintf("unknown tool %q", name))
		}

		argsRaw := call.Get("function.arguments").String()
		var args map[string]any
		if err := json.Unmarshal([]byte(argsRaw), &args); err != nil {
			return badRequest(fmt.Sprintf("tool %q: arguments are not valid JSON", name))
		}

		if err := validateArgs(name, args, schema); err != nil {
			return err
		}
	}
	return nil
}

func validateArgs(name string, args map[string]any, schema ToolSchema) error {
	for _, req := range schema.Required {
		if _, present := args[req]; !present {
			return badRequest(fmt.Sprintf("tool %q: missing required key %q", name, req))
		}
	}
	for key, val := range args {
		prop, known := schema.Properties[key]
		if !known {
			return badRequest(fmt.Sprintf("tool %q: unknown key %q", name, key))
		}
		if err := validateType(name, key, val, prop); err != nil {
			return err
		}
	}
	return nil
}

func validateType(name, key string, val any, prop PropertySchema) error {
	switch prop.Type {
	case PropertyString:
		if _, ok := val.(string); !ok {
			return badRequest(fmt.Sprintf("tool %q: key %q must be a string", name, key))
		}
	case PropertyObject:
		if _, ok := val.(map[string]any); !ok {
			return badRequest(fmt.Sprintf("tool %q: key %q must be an object", name, key))
		}
	case PropertyStringArray:
		arr, ok := val.([]any)
		if !ok {
			return badRequest(fmt.Sprintf("tool %q: key %q must be an array of strings", name, key))
		}
		if len(arr) < prop.MinItems {
			return badRequest(fmt.Sprintf("tool %q: key %q needs at least %d items", name, key, prop.MinItems))
		}
		for _, item := range arr {
			if _, ok := item.(string); !ok {
				return badRequest(fmt.Sprintf("tool %q: key %q must be an array of strings", name, key))
			}
		}
	}
	return nil
}

func badRequest(message string) error {
	return gwerrors.New(400, "invalid_tool_output", "bad_request", message)
}
