package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/sitesmith/internal/hermes"
)

var (
	natsURL   string
	natsToken string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print generation events published by the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := hermes.NewClient(connectCtx, natsURL, natsToken, slog.Default())
		if err != nil {
			return err
		}
		defer client.Close()

		err = client.SubscribeGenerations(func(evt hermes.Event) {
			fmt.Println(formatEvent(time.Now(), evt))
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "listening on %s (Ctrl-C to stop)\n", hermes.SubjectGenerationAll)
		<-ctx.Done()
		return nil
	},
}

// formatEvent renders one event as a single line.
func formatEvent(at time.Time, evt hermes.Event) string {
	prefix := at.Format(time.TimeOnly) + " " + evt.GenerationID()
	switch {
	case evt.Phase != nil:
		return fmt.Sprintf("%s phase %s -> %s", prefix, evt.Phase.From, evt.Phase.To)
	case evt.Completed != nil:
		c := evt.Completed
		return fmt.Sprintf("%s completed kind=%s provider=%s phase=%s code=%d complete=%t in %dms",
			prefix, c.Kind, c.Provider, c.Phase, c.CodeLen, c.CodeComplete, c.DurationMS)
	case evt.Failed != nil:
		f := evt.Failed
		return fmt.Sprintf("%s failed kind=%s phase=%s: %s", prefix, f.Kind, f.Phase, f.Error)
	}
	return prefix + " " + evt.Subject
}

func init() {
	eventsCmd.Flags().StringVar(&natsURL, "nats-url", cfg.NatsURL, "NATS server URL (env NATS_URL)")
	eventsCmd.Flags().StringVar(&natsToken, "nats-token", cfg.NatsToken, "NATS token (env NATS_TOKEN)")
	rootCmd.AddCommand(eventsCmd)
}
