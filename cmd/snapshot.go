// File: cmd/snapshot.go
package cmd

import (
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mockpage/internal/browser"
	"github.com/xkilldash9x/mockpage/internal/browser/dom"
	"github.com/xkilldash9x/mockpage/internal/fixtures"
	"github.com/xkilldash9x/mockpage/internal/observability"
)

type snapshotOutput struct {
	Title string         `json:"title"`
	Nodes []dom.A11yNode `json:"nodes"`
}

func newSnapshotCmd() *cobra.Command {
	var interactiveOnly bool
	var asJSON bool
	var fixture string

	cmd := &cobra.Command{
		Use:   "snapshot [file.html]",
		Short: "Print the title and accessibility snapshot of an HTML page",
		Long: `Loads an HTML document into a simulated page and prints its title and
role/name tree. Pages may reference the bundled AppRabbit behaviors. Use
--fixture to snapshot one of the bundled login pages instead of a file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			markup, source, err := readMarkup(cmd, args, fixture)
			if err != nil {
				return err
			}

			manager := browser.NewManager(logger, cfg, fixtures.NewRegistry())
			defer manager.Shutdown(cmd.Context())

			page := manager.NewPage()
			if err := page.SetContent(markup); err != nil {
				return fmt.Errorf("failed to load %s: %w", source, err)
			}
			logger.Debug("Page loaded for snapshot.", zap.String("source", source))

			nodes := page.Document().Snapshot()
			if interactiveOnly {
				nodes = dom.InteractiveOnly(nodes)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snapshotOutput{Title: page.Title(), Nodes: nodes})
			}
			fmt.Fprintf(out, "title: %s\n", page.Title())
			fmt.Fprint(out, dom.FormatSnapshot(nodes))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactiveOnly, "interactive", "i", false, "Only list interactive elements")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	cmd.Flags().StringVar(&fixture, "fixture", "", "Snapshot a bundled login page (login, required, quiet)")
	return cmd
}

// readMarkup returns the page markup from the fixture flag, a file argument, or stdin ("-").
func readMarkup(cmd *cobra.Command, args []string, fixture string) (string, string, error) {
	if fixture != "" {
		if len(args) > 0 {
			return "", "", fmt.Errorf("--fixture and a file argument are mutually exclusive")
		}
		markup, err := fixtures.LoginPage(fixtures.Variant(fixture))
		return markup, "fixture " + fixture, err
	}
	if len(args) == 0 {
		return "", "", fmt.Errorf("an HTML file (or - for stdin) is required")
	}

	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), args[0], nil
}
