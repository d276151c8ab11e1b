/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/internal/termfmt"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that AEM is reachable and accepts our credentials",
	Long: `
Connects to AEM the same way "serve" would, and reports connectivity and authentication
separately.  Exits non-zero when AEM is not healthy.
`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPI()
		if err != nil {
			return fmt.Errorf("cmd: AEM API creation failed: %w", err)
		}

		h := api.Health(cmd.Context())
		if HealthJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(h); err != nil {
				return err
			}
		} else {
			printHealth(os.Stdout, h)
		}

		if h.Status != aem.StatusHealthy {
			return fmt.Errorf("cmd: AEM at %s is %s", h.Host, h.Status)
		}
		return nil
	},
}

var HealthJSON bool

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().BoolVar(&HealthJSON, "json", false, "print the health report as JSON")
}

func printHealth(w io.Writer, h aem.Health) {
	fmt.Fprintf(w, "AEM %s is %s\n", termfmt.Bold().V(h.Host), termfmt.Status(h.Status == aem.StatusHealthy).V(h.Status))
	fmt.Fprintf(w, "  connection:     %s\n", termfmt.Status(h.AEM == aem.Connected).V(h.AEM))

	who := h.Authentication.Username
	if who == "" {
		who = h.Authentication.ServiceUser
	}
	auth := termfmt.Status(h.Authentication.Status == aem.AuthAuthenticated)
	if h.Authentication.Status == aem.AuthUnknown {
		auth = termfmt.Warn()
	}
	fmt.Fprintf(w, "  authentication: %s (%s as %q)\n", auth.V(h.Authentication.Status), h.Authentication.Method, who)

	if h.Error != "" {
		fmt.Fprintf(w, "  error:          %s\n", h.Error)
	}
}
