package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azalea224/butler-service-backend/internal/config"
	"github.com/Azalea224/butler-service-backend/internal/logger"
	"github.com/Azalea224/butler-service-backend/internal/services/ai"
	"github.com/Azalea224/butler-service-backend/internal/services/butler"
	"github.com/spf13/cobra"
)

const defaultProbePrompt = "Reply with one short sentence confirming you can hear me."

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check connectivity to external services",
	}
	cmd.AddCommand(newTestAICmd())
	return cmd
}

func newTestAICmd() *cobra.Command {
	var prompt string
	var timeout time.Duration
	var debug bool

	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Send a probe prompt to the configured model",
		Long:  "Builds the model client from the server configuration and sends one chat prompt, reporting the failure kind on error.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			zapLogger, err := logger.NewDevelopmentLogger(debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync(zapLogger) }()

			ctx, cancel := context.WithTimeout(contextOf(cmd), timeout)
			defer cancel()

			client, err := ai.NewConfiguredClient(ctx, ai.NewDefaultRegistry(), cfg.AIProvider,
				ai.ProviderConfig{APIKey: cfg.AIKey(), Model: cfg.AIModel, BaseURL: cfg.AIBaseURL, Logger: zapLogger},
				ai.ClientConfig{Persona: butler.Persona, Logger: zapLogger, DebugMode: debug},
			)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Provider: %s\nModel: %s\n", cfg.AIProvider, client.Model())
			if !client.Configured() {
				return fmt.Errorf("no credential configured for provider %q", cfg.AIProvider)
			}

			start := time.Now()
			reply, err := client.Invoke(ctx, ai.TemplateChat, prompt)
			if err != nil {
				return fmt.Errorf("model call failed (%s): %w", ai.KindOf(err), err)
			}
			fmt.Fprintf(out, "Latency: %s\nReply: %s\n", time.Since(start).Round(time.Millisecond), strings.TrimSpace(reply))
			fmt.Fprintln(out, "✓ Model is reachable")
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", defaultProbePrompt, "Prompt to send")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Maximum time to wait for the model")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log request and response previews")
	return cmd
}
