package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay-cli",
	Short: "Sponsored relay command line tool",
	Long: `Developer tooling for the sponsored transaction relay.
Builds and signs off-chain authorizations, submits them to a running
relay server, and probes the signing quorum.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
