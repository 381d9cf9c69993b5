package cmd

import (
	"github.com/spf13/cobra"

	"audio-archiver/config"
	server2 "audio-archiver/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start the audio storage server",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHTTP(config)
		},
	}
}
