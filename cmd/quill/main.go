package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/opptym/quill/cmd/server"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Quill issues bookmarklet capability tokens and delivers form fill-agent scripts",
}

func init() {
	rootCmd.AddCommand(server.ServerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
