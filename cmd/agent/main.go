package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/leadrelay/internal/bridge"
	"github.com/dkeye/leadrelay/internal/domain"
)

var (
	socketURL string
	leadID    string
	sender    string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "leadrelay-agent",
	Short: "Chat with a lead's room from the terminal",
	Long: `Connects to the lead chat relay once and follows one lead's room.

Lines typed are sent as chat messages. Commands:
  /lead <id>   switch to another lead (leaves the current room)
  /typing      send a typing signal
  /quit        leave the room and exit`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&socketURL, "url", envOr("SOCKET_URL", "ws://localhost:4001/socket"), `relay socket URL, or "disabled"`)
	rootCmd.Flags().StringVar(&leadID, "lead", "", "lead to open on start")
	rootCmd.Flags().StringVar(&sender, "sender", "agent", "sender label for messages and typing signals")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	label, err := domain.NewLabel(sender)
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	b := bridge.New(bridge.Options{
		URL:     socketURL,
		OnEvent: func(ev bridge.Event) { printEvent(out, ev) },
	})
	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	b.Connect(dialCtx)
	dialCancel()
	defer b.Close()

	if leadID != "" {
		if err := b.SelectLead(domain.LeadID(leadID)); err != nil {
			return err
		}
	}

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	return readLines(ctx, b, label, lines)
}

var (
	errDisconnected = errors.New("relay connection lost")
	errLeadUsage    = errors.New("usage: /lead <id>")
)

// readLines feeds input to handleLine until quit, EOF or cancellation. A
// bridge that was online ends the loop when its socket drops; standalone
// bridges keep going.
func readLines(ctx context.Context, b *bridge.Bridge, label domain.Label, lines <-chan string) error {
	var done <-chan struct{}
	if b.Connected() {
		done = b.Done()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return errDisconnected
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(b, label, strings.TrimSpace(line))
			if err != nil {
				log.Warn().Err(err).Msg("command failed")
			}
			if quit {
				return nil
			}
		}
	}
}

func handleLine(b *bridge.Bridge, label domain.Label, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == "/quit":
		return true, nil
	case line == "/lead":
		return false, errLeadUsage
	case line == "/typing":
		return false, b.Typing(label)
	case strings.HasPrefix(line, "/lead "):
		return false, b.SelectLead(domain.LeadID(strings.TrimSpace(strings.TrimPrefix(line, "/lead "))))
	default:
		if err := b.SendMessage(line, label); err != nil {
			return false, err
		}
		return false, b.StopTyping(label)
	}
}

func printEvent(w io.Writer, ev bridge.Event) {
	switch ev.Kind {
	case bridge.EventMessage:
		m := ev.Message
		if m.Variant == domain.VariantCall && m.Call != nil {
			fmt.Fprintf(w, "[%s] %s logged a %s call (%ds)\n", m.Timestamp.Local().Format(time.Kitchen), m.Sender, m.Call.Status, m.Call.DurationSeconds)
			return
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", m.Timestamp.Local().Format(time.Kitchen), m.Sender, m.Text)
	case bridge.EventTyping:
		fmt.Fprintf(w, "%s is typing...\n", ev.Typing.User)
	case bridge.EventDisconnected:
		fmt.Fprintln(w, "disconnected from relay")
	}
}
