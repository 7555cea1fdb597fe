package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/icoxfog417/agentcore-handshake/log"
)

var (
	appLogger log.Logger

	gatewayURL  string
	bearerToken string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "agentctl probes an MCP gateway protected by OAuth session binding",
	Long: `A command-line client for the gateway side of the handshake:
list the gateway's tools, invoke one, and when the gateway elicits
third-party authorization, print the consent URL the user must visit.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		appLogger = log.NewZerologAdapter(level, true)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", os.Getenv("GATEWAY_URL"), "MCP gateway endpoint URL")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", os.Getenv("GATEWAY_TOKEN"), "bearer token for the gateway")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func requireGatewayFlags() error {
	if gatewayURL == "" {
		return fmt.Errorf("--gateway (or GATEWAY_URL) is required")
	}
	if bearerToken == "" {
		return fmt.Errorf("--token (or GATEWAY_TOKEN) is required")
	}
	return nil
}
