package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/catalog/internal/client"
	"github.com/alfredjeanlab/catalog/internal/ui"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool
	authToken  string
	secret     string

	apiClient   client.Client
	cacheClient client.CacheClient
)

func envOr(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

var rootCmd = &cobra.Command{
	Use:           "catalog <command>",
	Short:         "Schema-driven content and catalog store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetColor(ui.ShouldUseColor(os.Stdout))

		httpClient := client.NewHTTPClient(httpURL, authToken, secret)
		apiClient = httpClient
		switch transport {
		case "http":
			cacheClient = httpClient
		case "grpc":
			c, err := client.NewGRPCClient(serverAddr, authToken)
			if err != nil {
				return fmt.Errorf("failed to connect to server: %w", err)
			}
			cacheClient = c
		default:
			return fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cacheClient != nil {
			cacheClient.Close()
		}
	},
}

// noClient skips client setup for commands that work on the store directly.
func noClient(cmd *cobra.Command, args []string) error {
	ui.SetColor(ui.ShouldUseColor(os.Stdout))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", envOr("CATALOG_HTTP_URL", "http://localhost:8080"), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", envOr("CATALOG_SERVER", "localhost:9090"), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport for cache commands (http or grpc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("CATALOG_AUTH_TOKEN"), "bearer token for admin requests")
	rootCmd.PersistentFlags().StringVar(&secret, "secret", os.Getenv("CATALOG_SECRET"), "webhook secret for revalidate")

	rootCmd.AddGroup(
		&cobra.Group{ID: "documents", Title: "Documents:"},
		&cobra.Group{ID: "cache", Title: "Cache:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Documents
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(globalCmd)
	rootCmd.AddCommand(uploadCmd)

	// Cache
	rootCmd.AddCommand(revalidateCmd)
	rootCmd.AddCommand(statsCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
