package main

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prankvzlom/sitelog/internal/notifier"
)

func main() {
	var (
		url     string
		token   string
		timeout time.Duration
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "sitelog-notify [flags] message...",
		Short: "Send one visitor event to the sitelog endpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message is empty")
			}

			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

			n := notifier.New(url, log, notifier.WithAccessToken(token), notifier.WithTimeout(timeout))
			n.Notify(message)
			// a process exit would drop the request
			n.Wait()
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/log", "logging endpoint URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("LOGGER_ACCESS_TOKEN"), "shared access token")
	cmd.Flags().DurationVar(&timeout, "timeout", notifier.DefaultTimeout, "request timeout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log successful sends")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
