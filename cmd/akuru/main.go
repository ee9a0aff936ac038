package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akuru-app/akuru/pkg/client"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	var (
		serverURL   string
		credsPath   string
		devFallback bool
		timeout     time.Duration
	)

	root := &cobra.Command{
		Use:   "akuru",
		Short: "Bilingual English/Dhivehi chat console",
		Long: "Akuru is a console client for the Akuru chat API.\n" +
			"It supports account login, guest sessions, conversation\n" +
			"management and streamed bilingual replies.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			retry := client.DefaultRetryPolicy()
			retry.DevFallback = devFallback

			c := client.New(client.Options{
				BaseURL: serverURL,
				Tokens:  client.NewFileTokenStore(credsPath),
				Retry:   retry,
				Timeout: timeout,
			})
			return runShell(cmd.Context(), c)
		},
	}

	root.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "API base URL")
	root.Flags().StringVar(&credsPath, "credentials", defaultCredentialsPath(), "credentials file")
	root.Flags().BoolVar(&devFallback, "dev-fallback", false, "fabricate conversations locally when the server fails")
	root.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout for non-streaming calls")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "akuru-credentials.json"
	}
	return filepath.Join(home, ".akuru", "credentials.json")
}
