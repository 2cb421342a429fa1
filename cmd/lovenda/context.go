package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lovenda/lovenda/internal/display"
	"github.com/lovenda/lovenda/internal/planctx"
)

var contextCmd = &cobra.Command{
	Use:   "context <profile.yaml|profile.json|->",
	Short: "Show the planning context built from a wedding profile",
	Long: `Normalize a wedding profile the way regeneration does and print the result.

Unknown values fall back to defaults and numbers are clamped into range, so
this never fails on a readable file. Use "-" to read the profile from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		pc := planctx.BuildAt(raw, today())

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pc)
		}
		display.Context(cmd.OutOrStdout(), pc)
		return nil
	},
}

func init() {
	contextCmd.Flags().Bool("json", false, "Print the context as JSON")
	rootCmd.AddCommand(contextCmd)
}

// loadProfile reads a raw profile map from a YAML or JSON file, or stdin for "-"
func loadProfile(path string) (map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return raw, nil
}
