/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"github.com/spf13/cobra"
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Commands to look at pages in AEM",
	Long: `
Commands in this namespace help you check what the builders produced, without opening the AEM
editor.
`,
}

func init() {
	rootCmd.AddCommand(pageCmd)
}
