package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskping/taskping/internal/config"
)

// NewAuthTestCmd creates the auth-test command
func NewAuthTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth-test",
		Short: "Test the OIDC configuration",
		Long:  "Validate that the configured OIDC issuer and JWKS endpoint are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cfg.OIDCIssuer == "" {
				return fmt.Errorf("OIDC_ISSUER is not configured")
			}

			fmt.Printf("Issuer: %s\n", cfg.OIDCIssuer)

			client := &http.Client{Timeout: 10 * time.Second}

			discoveryURL := cfg.OIDCIssuer + "/.well-known/openid-configuration"
			fmt.Printf("\nTesting discovery endpoint: %s\n", discoveryURL)
			if err := checkEndpoint(client, discoveryURL); err != nil {
				return err
			}
			fmt.Println("✓ Discovery endpoint is accessible")

			if cfg.JWKSURL != "" {
				fmt.Printf("\nTesting JWKS endpoint: %s\n", cfg.JWKSURL)
				if err := checkEndpoint(client, cfg.JWKSURL); err != nil {
					return err
				}
				fmt.Println("✓ JWKS endpoint is accessible")
			}

			fmt.Println("\n✓ OIDC configuration test passed")
			return nil
		},
	}

	return cmd
}

func checkEndpoint(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach endpoint: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
