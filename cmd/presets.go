package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/switchboard/internal/engine/sim"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/logging"
	"github.com/smazurov/switchboard/internal/presets"
	"github.com/smazurov/switchboard/internal/registry"
	"github.com/spf13/cobra"
)

// CreateCheckPresetsCmd creates the check-presets command.
func CreateCheckPresetsCmd() *cobra.Command {
	var printDot bool
	var timeout time.Duration
	var recordDir string

	cmd := &cobra.Command{
		Use:   "check-presets [file]",
		Short: "Validate a presets file",
		Long: `Parses the presets file and builds every declared mixer on the simulated engine. ` +
			`Reports every mixer, input and output that could not be built. With --dot the resulting graphs are printed in graphviz format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := presets.DefaultPath
			if len(args) == 1 {
				path = args[0]
			}
			out := cmd.OutOrStdout()

			f, err := presets.Load(path)
			if err != nil {
				return err
			}

			reg := registry.New(registry.Options{
				Engine:       sim.New(),
				EventBus:     events.New(),
				StateTimeout: timeout,
				RecordDir:    recordDir,
				Logger:       logging.GetLogger("presets"),
			})
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout*time.Duration(len(f.Mixers)+1))
			defer cancel()
			defer func() { _ = reg.Close(context.Background()) }()

			res := presets.Apply(ctx, reg, f, logging.GetLogger("presets"))
			for _, info := range reg.List() {
				fmt.Fprintf(out, "mixer %s: %d inputs, %d outputs, %dx%d@%d %s\n",
					info.Name, info.InputCount, info.OutputCount,
					info.Video.Width, info.Video.Height, info.Video.Framerate, info.Video.Format)
				if !printDot {
					continue
				}
				dot, err := reg.DebugDot(info.Name)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, dot)
			}
			for _, err := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%s: %d problems found", path, len(res.Errors))
			}
			fmt.Fprintf(out, "%s: ok\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&printDot, "dot", false, "Print each mixer graph in graphviz dot format")
	cmd.Flags().DurationVar(&timeout, "state-timeout", 2*time.Second, "Timeout for each state change")
	cmd.Flags().StringVar(&recordDir, "record-dir", "recordings", "Directory recording inputs would write to")
	return cmd
}
