package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var ClearCmd = &cobra.Command{
	Use:     "clear [log|watches|autoviews|processflow|all]",
	Aliases: []string{"c"},
	Short:   "Clear viewer panels",
	Long:    ``,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "log"
		if len(args) > 0 {
			target = args[0]
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Close()

		switch target {
		case "log":
			logger.ClearLog()
		case "watches":
			logger.ClearWatches()
		case "autoviews":
			logger.ClearAutoViews()
		case "processflow":
			logger.ClearProcessFlow()
		case "all":
			logger.ClearAll()
		default:
			return errors.Errorf("unknown clear target %q", target)
		}
		return nil
	},
}
