/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toothbrush/webverse-authoring/authoring"
)

var pageShowCmd = &cobra.Command{
	Use:   "show PAGE_PATH",
	Short: "Print a page as Markdown",
	Long: `
Fetches a page and prints its text components as Markdown, below a YAML header with the page's
title, template and protection.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAPI()
		if err != nil {
			return fmt.Errorf("cmd: AEM API creation failed: %w", err)
		}
		builder, err := newBuilder(api)
		if err != nil {
			return fmt.Errorf("cmd: invalid markets: %w", err)
		}

		markdown, err := builder.Preview(cmd.Context(), authoring.PageQuery{PagePath: args[0]})
		if err != nil {
			return err
		}
		fmt.Print(markdown)
		return nil
	},
}

func init() {
	pageCmd.AddCommand(pageShowCmd)
}
