package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/worker/invalidation"
)

var publishRows int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Source refresh events",
}

var eventsPublishCmd = &cobra.Command{
	Use:   "publish [category]",
	Short: "Announce that a source table was refreshed",
	Long: `Publishes a data-changed event on the configured invalidation transport
(INVALIDATION_TRANSPORT). Without a category every kind is announced.

$ seoulctl events publish cultural_events --rows 1520
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		event := domain.DataChangedEvent{ChangedAt: time.Now().UTC(), Rows: publishRows}
		if len(args) == 1 {
			kind, ok := domain.DefaultSources(cfg.Sources.Swapped).Parse(args[0])
			if !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}
			event.SourceKind = kind
		}

		publisher, closePublisher, err := invalidation.NewPublisher(cfg, log)
		if err != nil {
			return err
		}
		defer closePublisher()

		if err := publisher.PublishDataChanged(cmd.Context(), event); err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"transport": cfg.Invalidation.Transport,
			"event":     event,
		})
	},
}

func init() {
	eventsPublishCmd.Flags().IntVar(&publishRows, "rows", 0, "row count after the refresh, informational")
	eventsCmd.AddCommand(eventsPublishCmd)
}
