package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var WatchCmd = &cobra.Command{
	Use:     "watch name=value [name=value...]",
	Aliases: []string{"wa"},
	Short:   "Send watch values to the viewer",
	Long:    ``,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Close()

		for _, arg := range args {
			parts := strings.SplitN(arg, "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				return errors.Errorf("invalid watch %q, expected name=value", arg)
			}
			logger.WatchString(parts[0], parts[1])
		}
		return nil
	},
}
