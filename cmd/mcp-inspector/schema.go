package main

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/iamsonidarshan/mcp-inspector/pkg/config"
)

// SchemaCmd generates a JSON Schema for the config file. Output goes to
// stdout so it can be redirected.
type SchemaCmd struct {
	Compact bool `short:"C" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "mcp-inspector configuration schema"
	schema.Description = "Configuration schema for the mcp-inspector control surface"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(schema)
}
