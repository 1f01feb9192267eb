package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/loupelog/loupe/config"
	"github.com/loupelog/loupe/internal"
	"github.com/loupelog/loupe/protocol"
	"github.com/loupelog/loupe/server"
	"github.com/loupelog/loupe/stats"
)

var tmpConfig = config.New()

var debugAddr string

var RootCmd = &cobra.Command{
	Use:   "loupe-view",
	Short: "Receive log records and print them to the console",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

		if debugAddr != "" {
			go func() {
				internal.Logf("debug metrics at http://%s/debug/metrics", debugAddr)
				internal.IgnoreError(tmpConfig.Verbose, http.ListenAndServe(debugAddr, stats.DebugHandler()))
			}()
		}

		addr := net.JoinHostPort(tmpConfig.Host, strconv.Itoa(tmpConfig.Port))
		sock := server.NewSocket(addr, tmpConfig, printHandler(out))

		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
		sock.GoServe()
		<-sigC

		if sizes := sock.FrameSizes(); sizes.Count() > 0 {
			out.Info().Msgf("frame sizes: %s", sizes)
		}
		return sock.Stop()
	},
}

func init() {
	*tmpConfig = *config.Default

	pflags := RootCmd.PersistentFlags()
	dconf := config.Default

	pflags.BoolVarP(&tmpConfig.Verbose, "verbose", "v", dconf.Verbose,
		"print debug output")
	pflags.StringVar(&tmpConfig.Host, "host", "",
		"`HOST` to listen on")
	pflags.IntVar(&tmpConfig.Port, "port", dconf.Port,
		"`PORT` to listen on")
	pflags.StringVar(&debugAddr, "debug-addr", "",
		"`ADDR` to serve expvar and metrics on")
}

func printHandler(out zerolog.Logger) server.Handler {
	return server.HandlerFunc(func(conn *server.Conn, frame *protocol.Frame) error {
		rec, err := frame.Record()
		if err != nil {
			return err
		}

		switch r := rec.(type) {
		case *protocol.Header:
			out.Info().
				Str("app", r.AppName).
				Str("host", r.HostName).
				Str("room", r.Room).
				Msg("session started")
		case *protocol.LogEntry:
			out.WithLevel(entryLevel(r.Type)).
				Str("app", r.AppName).
				Str("session", r.SessionName).
				Msg(r.Title)
		case *protocol.Watch:
			out.Info().
				Str("watch", r.Name).
				Str("value", r.Value).
				Msg("watch")
		case *protocol.ProcessFlow:
			out.Debug().
				Uint32("pid", r.PID).
				Str("title", r.Title).
				Msgf("process flow %d", r.Type)
		case *protocol.ControlCommand:
			out.Info().Msgf("control command %d", r.Type)
		case *protocol.Stream:
			out.Info().
				Str("channel", r.Channel).
				Int("bytes", len(r.Data)).
				Msg("stream")
		}
		return nil
	})
}

func entryLevel(t protocol.LogEntryType) zerolog.Level {
	switch t {
	case protocol.EntryDebug:
		return zerolog.DebugLevel
	case protocol.EntryVerbose:
		return zerolog.TraceLevel
	case protocol.EntryWarning:
		return zerolog.WarnLevel
	case protocol.EntryError, protocol.EntryInternalError:
		return zerolog.ErrorLevel
	case protocol.EntryFatal:
		return zerolog.FatalLevel
	}
	return zerolog.InfoLevel
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
