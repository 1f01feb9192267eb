package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/loupelog/loupe"
)

var levelFlag string
var sessionFlag string

func init() {
	pflags := WriteCmd.PersistentFlags()

	pflags.StringVar(&levelFlag, "level", "message",
		"`LEVEL` of the messages: debug, verbose, message, warning, error, fatal")
	pflags.StringVar(&sessionFlag, "session", "Main",
		"`SESSION` name shown in the viewer")
}

var WriteCmd = &cobra.Command{
	Use:     "write [messages]",
	Aliases: []string{"w"},
	Short:   "Send log messages to the viewer",
	Long:    `Messages are read from the arguments, or from stdin when none are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Close()

		logger = logger.WithSession(sessionFlag)

		send := logFunc(logger, levelFlag)
		for _, arg := range args {
			send("%s", arg)
		}
		if len(args) > 0 {
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			send("%s", scanner.Text())
		}
		return scanner.Err()
	},
}

func logFunc(logger *loupe.Logger, level string) func(string, ...interface{}) {
	switch level {
	case "debug":
		return logger.Debug
	case "verbose":
		return logger.Verbose
	case "warning":
		return logger.Warning
	case "error":
		return logger.Error
	case "fatal":
		return logger.Fatal
	}
	return logger.Message
}
