package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

var (
	runTestID string
	runDraft  bool
)

var runCmd = &cobra.Command{
	Use:   "run <request.json>",
	Short: "Run one step-list test",
	Long: `Compiles the run request in the given JSON file ("-" reads stdin),
executes it in a browser and prints the result. Exits non-zero when the
test fails. With --draft the file holds an authoring-time draft, which is
lowered first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var (
			req   domain.RunRequest
			draft domain.DraftTest
			name  string
		)
		if runDraft {
			err = readJSONFile(cmd, args[0], &draft)
			name = draft.Name
		} else {
			err = readJSONFile(cmd, args[0], &req)
			name = req.Test.Name
		}
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var res *domain.RunResult
		if runDraft {
			res, err = a.svc.RunDraft(cmd.Context(), draft)
		} else {
			res, err = a.svc.Run(cmd.Context(), runTestID, req)
		}
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Failed() {
			return fmt.Errorf("test %q failed", name)
		}
		log.Infof("Test %q passed in %dms", name, res.DurationMs)
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <batch.json>",
	Short: "Run several tests in one browser session",
	Long: `Runs the shared steps once, then every test of the batch request in
the given JSON file in the same browser context. Exits non-zero when any
test fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var req domain.BatchRunRequest
		if err := readJSONFile(cmd, args[0], &req); err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.svc.RunBatch(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Failed() {
			return fmt.Errorf("batch failed")
		}
		log.Infof("Batch of %d tests passed in %dms", len(res.Results), res.DurationMs)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runTestID, "id", "", "test id recorded in the run report")
	runCmd.Flags().BoolVar(&runDraft, "draft", false, "read an authoring-time draft instead of a run request")
	for _, c := range []*cobra.Command{runCmd, batchCmd} {
		c.Flags().BoolVar(&installBrowsers, "install-browsers", false, "install the Playwright driver and browser before running")
		rootCmd.AddCommand(c)
	}
}

// readJSONFile decodes path, or stdin for "-", into v.
func readJSONFile(cmd *cobra.Command, path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.NewErrorWithSuggestion(domain.PhaseParse, path, 0,
			"invalid JSON", "check the file against the run request format", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
