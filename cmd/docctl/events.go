package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func (c *cli) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Lifecycle events published to NATS",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print lifecycle events as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.app.Events == nil {
				return domain.Invalidf("NATS_URL is not configured")
			}
			encoder := json.NewEncoder(c.out)
			err := c.app.Events.Subscribe(cmd.Context(), func(_ context.Context, event domain.LifecycleEvent) error {
				return encoder.Encode(event)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	})
	return cmd
}
