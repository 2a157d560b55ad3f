package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/switchboard/internal/logging"
	"github.com/smazurov/switchboard/internal/nats"
	"github.com/spf13/cobra"
)

// CreateSwitchCmd creates the switch command.
func CreateSwitchCmd() *cobra.Command {
	var url string
	var timeout time.Duration
	var remove bool

	cmd := &cobra.Command{
		Use:   "switch [mixer] [input]",
		Short: "Switch the active input of a running server",
		Long:  `Sends a control command over NATS to a running switchboard server and waits for the reply. With --remove the input is removed instead.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mixerName, input := args[0], args[1]
			client, err := nats.NewControlClient(url, logging.GetLogger("nats"))
			if err != nil {
				return fmt.Errorf("connect %s: %w", url, err)
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if remove {
				err = client.RemoveInput(ctx, mixerName, input)
			} else {
				err = client.SetActive(ctx, mixerName, input)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok\n", mixerName, input)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "Time to wait for the reply")
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the input instead of activating it")
	return cmd
}
