package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bankline/chat-gateway/internal/application/dispatch"
	"github.com/bankline/chat-gateway/internal/bootstrap"
	"github.com/bankline/chat-gateway/internal/config"
)

// consoleEnv lets the console run without webhook credentials.
type consoleEnv struct{}

func (consoleEnv) Getenv(key string) string {
	if key == "ALLOW_NO_VERIFY_TOKEN" {
		return "true"
	}
	return os.Getenv(key)
}

// consoleSender prints replies instead of calling the messenger platform.
type consoleSender struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *consoleSender) Send(_ context.Context, _ string, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "bot> %s\n", text)
	return err
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a conversation with the assistant on the console",
		Long: `Reads one message per line from stdin and prints the assistant's replies.
Messages go through the same pipeline as webhook deliveries, against the
backend configured by BACKEND_URL.`,
		RunE: runChat,
	}

	cmd.Flags().StringP("user", "u", "console", "Sender id for the conversation")
	cmd.Flags().Duration("rate-limit", 0, "Minimum gap between messages (default from RATE_LIMIT_INTERVAL)")
	cmd.Flags().BoolP("verbose", "v", false, "Log pipeline events to stderr")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	rateLimit, _ := cmd.Flags().GetDuration("rate-limit")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.LoadFrom(consoleEnv{})
	if err != nil {
		return err
	}
	if rateLimit > 0 {
		cfg.RateLimitInterval = rateLimit
	}

	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stack, err := bootstrap.Build(ctx, cfg, &consoleSender{out: cmd.OutOrStdout()}, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	return converse(ctx, stack.Dispatcher, userID, cmd.InOrStdin(), cmd.ErrOrStderr())
}

// converse feeds each non-empty line to the dispatcher until EOF. Sending
// "exit" ends the session but not the console; the next line starts over.
func converse(ctx context.Context, d *dispatch.Service, userID string, in io.Reader, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		status, err := d.Dispatch(ctx, dispatch.Message{
			SenderID:  userID,
			MessageID: uuid.NewString(),
			Text:      line,
		})
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		if status == dispatch.StatusRateLimited {
			fmt.Fprintln(errOut, "(message not processed, try again)")
		}
	}
	return scanner.Err()
}
