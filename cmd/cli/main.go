package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	host   string
	token  string
	apiKey string
)

var rootCmd = &cobra.Command{
	Use:   "mahjong-cli",
	Short: "A CLI to interact with the mahjong-club server",
	Long: `A command-line interface for making requests to the various endpoints
of the mahjong-club application: players, match results and the club chat.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", envOr("MAHJONG_HOST", "http://localhost:8080"), "The host address of the server")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("MAHJONG_TOKEN"), "Session token sent as a bearer token")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("MAHJONG_API_KEY"), "Read-only API key, used when no token is set")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
