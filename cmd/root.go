package cmd

import (
	"github.com/spf13/cobra"

	"audio-archiver/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{Use: "audio-archiver"}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(record(config))
	return rootCmd
}
