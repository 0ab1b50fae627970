package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	importSave   bool
	importFormat string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Read existing spec files back into step lists",
	Long: `Scans the reader's spec directory, parses every Playwright spec and
plan document, and prints the recovered tests. With --save each test that
has steps is stored as a new version.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if importFormat != "json" && importFormat != "yaml" {
			return fmt.Errorf("unsupported format %q (expected json or yaml)", importFormat)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		save := importSave && !cfg.DryRun
		if importSave && cfg.DryRun {
			log.Info("Dry run: specs will not be saved")
		}
		res, err := a.svc.Import(cmd.Context(), save)
		if err != nil {
			return err
		}
		if importFormat == "yaml" {
			return printYAML(cmd.OutOrStdout(), res)
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importSave, "save", false, "store every recovered test as a new version")
	importCmd.Flags().StringVarP(&importFormat, "format", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(importCmd)
}

// printYAML writes v as block-style YAML using its JSON field names.
func printYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	clearStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
