/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toothbrush/webverse-authoring/authoring"
	"github.com/toothbrush/webverse-authoring/internal/termfmt"
)

var provisionUsage = strings.TrimSpace(`
Duplicate a template for every market at once, the way POST /sites/duplicate-template does for
one.  Markets that already have a copy are reported as conflicts and left alone.
`)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Duplicate a template for every market",
	Long:  provisionUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPI()
		if err != nil {
			return fmt.Errorf("cmd: AEM API creation failed: %w", err)
		}
		builder, err := newBuilder(api)
		if err != nil {
			return fmt.Errorf("cmd: invalid markets: %w", err)
		}

		results, err := builder.Provision(cmd.Context(), authoring.ProvisionRequest{
			Drug:       ProvisionDrug,
			SourcePath: ProvisionSource,
			Markets:    ProvisionOnly,
			Workers:    ProvisionWorkers,
		}, os.Stderr)
		if err != nil {
			return fmt.Errorf("cmd: provisioning failed: %w", err)
		}

		failures := 0
		for _, r := range results {
			if r.Success() {
				fmt.Printf("  %s %-10s %s\n", termfmt.OK().V("ok"), r.Market, r.Path)
				continue
			}
			failures++
			fmt.Printf("  %s %-10s %v\n", termfmt.Fail().V("!!"), r.Market, r.Error)
		}

		if failures > 0 {
			return fmt.Errorf("cmd: %d of %d markets failed", failures, len(results))
		}
		return nil
	},
}

var (
	ProvisionDrug    string
	ProvisionSource  string
	ProvisionOnly    []string
	ProvisionWorkers int
)

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().StringVar(&ProvisionDrug, "drug", "", "drug name, appended to each copy's name")
	provisionCmd.Flags().StringVar(&ProvisionSource, "source", "", "path of the template to duplicate")
	provisionCmd.Flags().StringSliceVar(&ProvisionOnly, "only", nil, "only these markets (default: all of --markets)")
	provisionCmd.Flags().IntVar(&ProvisionWorkers, "workers", 4, "how many markets to work on at once")
	_ = provisionCmd.MarkFlagRequired("source")
}
