package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icoxfog417/agentcore-handshake/gateway"
)

var (
	callArgs  string
	returnURL string
	forceAuth bool
)

var callCmd = &cobra.Command{
	Use:   "call TOOL",
	Short: "Invoke a gateway tool",
	Long: `Invokes a tool through the MCP gateway. When the tool's target needs
the user's authorization first, the gateway answers with an elicitation;
agentctl prints the consent URL instead of a result. Visit the URL,
complete the callback, then run the same call again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGatewayFlags(); err != nil {
			return err
		}

		arguments := map[string]interface{}{}
		if callArgs != "" {
			if err := json.Unmarshal([]byte(callArgs), &arguments); err != nil {
				return fmt.Errorf("--args must be a JSON object: %w", err)
			}
		}

		var opts *gateway.CallOptions
		if returnURL != "" {
			opts = &gateway.CallOptions{
				ReturnURL:           returnURL,
				ForceAuthentication: forceAuth,
			}
		}

		client := gateway.NewClient(gatewayURL, nil, appLogger)
		result, authRequired, err := client.CallTool(cmd.Context(), bearerToken, args[0], arguments, opts)
		if err != nil {
			return err
		}

		if authRequired != nil {
			fmt.Printf("Authorization required.\n")
			fmt.Printf("Visit: %s\n", authRequired.URL)
			fmt.Printf("Elicitation: %s\n", authRequired.ElicitationID)
			fmt.Printf("Retry the call after completing the callback.\n")
			return nil
		}

		fmt.Println(result.Text())
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callArgs, "args", "", "tool arguments as a JSON object")
	callCmd.Flags().StringVar(&returnURL, "return-url", "", "callback URL to offer for the OAuth leg")
	callCmd.Flags().BoolVar(&forceAuth, "force-auth", false, "force a fresh authorization even if one exists")
	rootCmd.AddCommand(callCmd)
}
