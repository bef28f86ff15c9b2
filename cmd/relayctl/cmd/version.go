package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// These will be set by ldflags during build
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version information for relayctl.`,
	Run: func(cmd *cobra.Command, args []string) {
		commit, built := buildStamp()
		out := cmd.OutOrStdout()
		if outputJSON {
			printOutput(out, map[string]string{
				"version":   Version,
				"gitCommit": commit,
				"buildTime": built,
				"goVersion": runtime.Version(),
				"goos":      runtime.GOOS,
				"goarch":    runtime.GOARCH,
			})
			return
		}
		fmt.Fprintf(out, "relayctl version %s\n", Version)
		fmt.Fprintf(out, "Git commit: %s\n", commit)
		fmt.Fprintf(out, "Built: %s\n", built)
		fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// buildStamp prefers ldflags values and falls back to the VCS stamp
// `go build` embeds.
func buildStamp() (commit, built string) {
	commit, built = GitCommit, BuildTime
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, built
	}
	return stampFromSettings(commit, built, info.Settings)
}

func stampFromSettings(commit, built string, settings []debug.BuildSetting) (string, string) {
	for _, s := range settings {
		switch {
		case s.Key == "vcs.revision" && commit == "unknown":
			commit = s.Value
		case s.Key == "vcs.time" && built == "unknown":
			built = s.Value
		}
	}
	return commit, built
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
