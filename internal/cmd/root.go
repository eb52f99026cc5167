// Package cmd implements the dingtalk command line.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "dingtalk",
	Short: "DingTalk node host",
	Long: `dingtalk hosts the DingTalk plugin: it runs single operations against the
DingTalk open platform, serves the node over HTTP, and listens to the Stream
push gateway.

Credentials and plugin settings come from a YAML config file whose string
values may reference environment variables as ${VAR} or ${VAR:default}.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the host config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level regardless of the config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(streamCmd)
}
