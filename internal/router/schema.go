package router

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	internalerrors "github.com/Epistates/turbomcp-sub009/internal/errors"
)

// validateToolArguments checks args against a tool's declared inputSchema
// (spec §4.4: "Tool inputs are validated against the tool's inputSchema").
// A tool that declares no inputSchema accepts any arguments unchecked.
func validateToolArguments(inputSchema map[string]any, args map[string]any) error {
	if len(inputSchema) == 0 {
		return nil
	}

	raw, err := json.Marshal(inputSchema)
	if err != nil {
		return internalerrors.NewKind("router", "validateToolArguments", internalerrors.KindInternal, err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return internalerrors.NewKind("router", "validateToolArguments", internalerrors.KindInternal, err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return internalerrors.NewKind("router", "validateToolArguments", internalerrors.KindInternal, err)
	}

	if err := resolved.Validate(args); err != nil {
		return internalerrors.NewKind("router", "validateToolArguments", internalerrors.KindInvalidParams,
			fmt.Errorf("arguments do not match inputSchema: %w", err))
	}
	return nil
}
