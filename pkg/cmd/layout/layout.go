package layout

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/lapboard/pkg/config"
	"github.com/mpapenbr/lapboard/pkg/telemetry"
)

func NewLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "print the effective telemetry record layout as yaml",
		Long: `Prints the record layout used to decode the shared memory segment.
The output can be used as a starting point for a file passed to poll --layout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := telemetry.DefaultLayout()
			if config.LayoutFile != "" {
				var err error
				if l, err = telemetry.LoadLayout(config.LayoutFile); err != nil {
					return err
				}
			}
			out, err := l.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&config.LayoutFile,
		"layout",
		"",
		"yaml file overriding the telemetry record layout")
	return cmd
}
