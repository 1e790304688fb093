// File: cmd/resolve.go
package cmd

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mockpage/internal/browser"
	"github.com/xkilldash9x/mockpage/internal/browser/expect"
	"github.com/xkilldash9x/mockpage/internal/config"
	"github.com/xkilldash9x/mockpage/internal/fixtures"
	"github.com/xkilldash9x/mockpage/internal/observability"
)

func newResolveCmd() *cobra.Command {
	var routesFile string
	var scenarios []string
	var method string
	var data string
	var headers []string
	var expectJSON string
	var ignoreKeys []string

	cmd := &cobra.Command{
		Use:   "resolve [url]",
		Short: "Resolve one request against route fixtures",
		Long: `Sends a single request through the route interceptor loaded from a YAML
fixture file and prints the response. Without --routes, the file from
fixtures.routes_file is used, falling back to the bundled AppRabbit scenarios.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			if routesFile == "" {
				routesFile = cfg.Fixtures().RoutesFile
			}
			set, err := loadRouteSet(routesFile)
			if err != nil {
				return err
			}

			manager := browser.NewManager(logger, cfg, nil)
			defer manager.Shutdown(cmd.Context())
			page := manager.NewPage()

			if err := set.Apply(page.Router(), scenarios...); err != nil {
				return fmt.Errorf("failed to apply route fixtures: %w", err)
			}

			req := browser.FetchRequest{Method: strings.ToUpper(method), URL: args[0], Headers: map[string]string{}}
			if data != "" {
				req.Body = []byte(data)
				req.Headers["Content-Type"] = "application/json"
			}
			for _, h := range headers {
				key, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, expected Key: Value", h)
				}
				req.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}

			res, err := page.Fetch(cmd.Context(), req)
			if err != nil {
				return err
			}
			logger.Debug("Request resolved.", zap.String("url", args[0]), zap.Int("status", res.Status))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d %s\n", res.Status, res.Headers.Get("Content-Type"))
			fmt.Fprintln(out, res.Text())

			if expectJSON == "" {
				return nil
			}
			opts := expect.JSONOptions{IgnoreArrayOrder: true}
			for _, k := range ignoreKeys {
				re, err := regexp.Compile(k)
				if err != nil {
					return fmt.Errorf("invalid --ignore-key pattern %q: %w", k, err)
				}
				opts.IgnoreKeys = append(opts.IgnoreKeys, re)
			}
			return page.Expect().ToMatchJSON(res.Body, []byte(expectJSON), opts)
		},
	}

	cmd.Flags().StringVarP(&routesFile, "routes", "r", "", "YAML route fixture file")
	cmd.Flags().StringSliceVarP(&scenarios, "scenario", "s", nil, "Route scenario(s) to apply")
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header (Key: Value)")
	cmd.Flags().StringVar(&expectJSON, "expect-json", "", "Fail unless the response body equals this JSON")
	cmd.Flags().StringSliceVar(&ignoreKeys, "ignore-key", nil, "Regexp of object keys to ignore with --expect-json")
	cmd.Flags().String("policy", config.UnhandledPolicyFail, "Unhandled request policy (fail, network_error)")
	return cmd
}

func loadRouteSet(path string) (*fixtures.RouteSet, error) {
	if path == "" {
		return fixtures.DefaultRoutes()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open route fixtures: %w", err)
	}
	defer f.Close()
	return fixtures.LoadRoutes(f)
}
