package cmd

import (
	"fmt"

	"github.com/smazurov/switchboard/internal/engine"
	"github.com/spf13/cobra"
)

// CreateEnginesCmd creates the engines command.
func CreateEnginesCmd(defaultEngine string) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List media engine backends",
		Long:  `Lists the media engine backends compiled into this binary. The gstreamer backend requires building with -tags gstreamer.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range engine.Available() {
				marker := " "
				if name == defaultEngine {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
		},
	}
}
