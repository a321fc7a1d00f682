package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcview/rcview-cli/pkg/portal"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the RC View portal",
	Long: `Starts the OAuth2 authorization code flow. Open the printed URL in a
browser, sign in, and paste the resulting code back here. Tokens are saved
to the configured token file and refreshed automatically afterwards.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("portal"); err != nil {
			return err
		}

		client := portal.New(cfg.Portal.BaseURL, cfg.Portal.ClientID)

		fmt.Println("Open this URL in a browser and sign in:")
		fmt.Println()
		fmt.Println("  " + client.AuthCodeURL())
		fmt.Println()
		fmt.Print("Enter the authorization code: ")

		reader := bufio.NewReader(os.Stdin)
		code, err := reader.ReadString('\n')
		if err != nil {
			return eris.Wrap(err, "login: read authorization code")
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return eris.New("login: no authorization code entered")
		}

		if err := client.Exchange(cmd.Context(), code); err != nil {
			return err
		}
		if err := client.SaveTokens(cfg.Portal.TokenFile); err != nil {
			return err
		}

		info, err := client.Self(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Logged in to %s as %s\n", info.Name, info.User.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
