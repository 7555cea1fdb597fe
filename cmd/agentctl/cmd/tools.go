package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icoxfog417/agentcore-handshake/gateway"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the gateway's tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGatewayFlags(); err != nil {
			return err
		}

		client := gateway.NewClient(gatewayURL, nil, appLogger)
		tools, err := client.ListTools(cmd.Context(), bearerToken)
		if err != nil {
			return err
		}

		for _, tool := range tools {
			fmt.Printf("%s\t%s\n", tool.Name, tool.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
