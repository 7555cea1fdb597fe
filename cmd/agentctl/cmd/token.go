package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icoxfog417/agentcore-handshake/vault"
)

var (
	vaultEndpoint string
	providerARN   string
)

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Look up the stored third-party token for a user",
	Long: `Reads the token vault for a (credential provider, user) pair. A miss
prints the authorization URL the user must visit to store one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if vaultEndpoint == "" {
			return fmt.Errorf("--vault is required")
		}
		if providerARN == "" {
			return fmt.Errorf("--provider is required")
		}

		client := vault.NewClient(vaultEndpoint, nil, appLogger)
		token, authURL, err := client.GetResourceOAuth2Token(cmd.Context(), providerARN, args[0])
		if err != nil {
			if authURL != "" {
				fmt.Printf("No token stored.\nVisit: %s\n", authURL)
				return nil
			}
			return err
		}

		fmt.Printf("Token stored for user (first 8 chars): %.8s...\n", token.AccessToken)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&vaultEndpoint, "vault", "", "token vault endpoint URL")
	tokenCmd.Flags().StringVar(&providerARN, "provider", "", "credential provider identifier")
	rootCmd.AddCommand(tokenCmd)
}
