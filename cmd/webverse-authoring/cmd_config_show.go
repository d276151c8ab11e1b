/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Output current config",
	Long: `
Is something not working for you?  Have a look whether your config is as you expect.  Secrets are
masked.
`,
	Run: func(cmd *cobra.Command, args []string) {
		// Note, you can only talk about persistent flags here.  Command-specific ones won't be
		// visible.
		showConfig(os.Stdout)
	},
}

func init() {
	configCmd.AddCommand(showCmd)
}

func showConfig(w io.Writer) {
	fmt.Fprintf(w, "Dump current config state:\n\n")

	fmt.Fprintf(w, "  Config file: %s\n", Config)
	fmt.Fprintf(w, "  Config found: %v\n", ConfigActual != "")
	fmt.Fprintf(w, "  Env file: %s\n", EnvFile)
	fmt.Fprintf(w, "  Debug: %v\n", Debug)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  AEMHost: %s\n", AEMHost)
	fmt.Fprintf(w, "  AEMTimeout: %s\n", AEMTimeout)
	fmt.Fprintf(w, "  AuthMode: %s\n", AuthMode)
	fmt.Fprintf(w, "  AEMUsername: %s\n", AEMUsername)
	fmt.Fprintf(w, "  AEMPassword: %s\n", mask(AEMPassword))
	fmt.Fprintf(w, "  ServiceTokenFile: %s\n", ServiceTokenFile)
	fmt.Fprintf(w, "  ServiceUserMapping: %s\n", ServiceUserMapping)
	fmt.Fprintf(w, "  TokenMaxAge: %s\n", TokenMaxAge)
	fmt.Fprintf(w, "  AssetsRoot: %s\n", AssetsRoot)
	fmt.Fprintf(w, "  Markets: %s\n", strings.Join(Markets, ","))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  LogLevel: %s\n", LogLevel)
	fmt.Fprintf(w, "  Environment: %s\n", Environment)
}

func mask(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "********"
}
