package commands

import (
	"encoding/json"
	"fmt"

	"github.com/benvon/insight-coach/internal/models"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// RequestSchema returns the JSON Schema of the insight request body
func RequestSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(&models.InsightRequest{})
	schema.Title = "InsightRequest"
	schema.Description = "Body of POST /api/v1/insight"

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}

// NewSchemaCmd creates the schema command
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the insight request body",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := RequestSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
