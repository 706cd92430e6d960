package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConfigCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration as YAML",
		Long: `Write the configuration in effect (defaults, overlaid by the config file
and then the environment) to --output, or to the --config path when unset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				path = a.configPath
			}
			if err := a.cfg.Save(path); err != nil {
				return err
			}
			a.logger.Debug("config written", zap.String("path", path))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file")
	return cmd
}
