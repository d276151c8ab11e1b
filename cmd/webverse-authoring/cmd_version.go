/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var versionUsage = strings.TrimSpace(`
Show version information
`)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: versionUsage,
	Long:  versionUsage,
	RunE:  versionRun,
	Args:  cobra.ExactArgs(0),
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var (
	// Version is set with -ldflags "-X main.Version=v1.2.3" by release builds.
	Version = "unknown"
	// Revision is taken from the vcs.revision tag in Go 1.18+.
	Revision = "unknown"
	// LastCommit is taken from the vcs.time tag in Go 1.18+.
	LastCommit time.Time
	// DirtyBuild is taken from the vcs.modified tag in Go 1.18+.
	DirtyBuild = true
)

func versionRun(cmd *cobra.Command, args []string) error {
	fmt.Printf("webverse-authoring version %s\n", shortVersion())
	if !LastCommit.IsZero() {
		fmt.Printf("  committed %s\n", LastCommit.Format(time.RFC3339))
	}
	return nil
}

// shortVersion is also what "serve" reports on its banner endpoint.
func shortVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if Version == "unknown" && info.Main.Version != "" {
			Version = info.Main.Version
		}
		for _, kv := range info.Settings {
			switch kv.Key {
			case "vcs.revision":
				Revision = kv.Value
			case "vcs.time":
				LastCommit, _ = time.Parse(time.RFC3339, kv.Value)
			case "vcs.modified":
				DirtyBuild = kv.Value == "true"
			}
		}
	}

	parts := make([]string, 0, 4)
	if Version != "unknown" && Version != "(devel)" {
		parts = append(parts, Version)
	}
	if Revision != "unknown" && Revision != "" {
		parts = append(parts, "rev", Revision)
		if DirtyBuild {
			parts = append(parts, "dirty")
		}
	}
	if len(parts) == 0 {
		return "devel"
	}
	return strings.Join(parts, "-")
}
