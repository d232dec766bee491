package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bankline/chat-gateway/internal/config"
	"github.com/bankline/chat-gateway/internal/infrastructure/backend"
	"github.com/bankline/chat-gateway/internal/infrastructure/translation"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the banking backend and translation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(consoleEnv{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Chat Gateway Health")
			fmt.Fprintln(out, strings.Repeat("=", 40))

			bk := backend.NewClient(cfg.BackendURL, backend.WithHealthTimeout(cfg.HealthTimeout))
			fmt.Fprintf(out, "  Backend:     %s (%s)\n", status(bk.Health(ctx)), cfg.BackendURL)

			if !cfg.TranslationEnabled() {
				fmt.Fprintln(out, "  Translation: not configured")
			} else {
				tr := translation.NewClient(cfg.TranslationURL, translation.WithTimeout(cfg.HealthTimeout))
				fmt.Fprintf(out, "  Translation: %s (%s)\n", status(tr.Healthy(ctx)), cfg.TranslationURL)
			}

			if cfg.PersistentAudit() {
				fmt.Fprintln(out, "  Audit:       postgres")
			} else {
				fmt.Fprintln(out, "  Audit:       memory")
			}
			return nil
		},
	}
}

func status(err error) string {
	if err != nil {
		return "UNREACHABLE: " + err.Error()
	}
	return "OK"
}
