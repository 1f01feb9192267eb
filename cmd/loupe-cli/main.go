package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loupelog/loupe"
	"github.com/loupelog/loupe/config"
	"github.com/loupelog/loupe/internal"
)

var tmpConfig = config.New()
var dsnFlag string
var timeoutMS uint

var RootCmd = &cobra.Command{
	Use:   "loupe-cli",
	Short: "Send log records to a viewer",
	Long:  ``,
}

func init() {
	cobra.OnInitialize(initConfig)

	*tmpConfig = *config.Default

	pflags := RootCmd.PersistentFlags()
	dconf := config.Default

	pflags.BoolVarP(&tmpConfig.Verbose, "verbose", "v", dconf.Verbose,
		"print debug output")
	pflags.StringVar(&tmpConfig.Host, "host", dconf.Host,
		"viewer `HOST` to connect to")
	pflags.IntVar(&tmpConfig.Port, "port", dconf.Port,
		"viewer `PORT` to connect to")
	pflags.StringVar(&tmpConfig.AppName, "app-name", dconf.AppName,
		"`NAME` shown as the application in the viewer")
	pflags.StringVar(&tmpConfig.Room, "room", dconf.Room,
		"viewer `ROOM` to join")
	pflags.UintVar(&timeoutMS, "timeout", uint(dconf.Timeout/time.Millisecond),
		"`MILLISECONDS` to wait for the connection")
	pflags.StringVar(&dsnFlag, "dsn", "",
		"connection `DSN`, for example tcp(host=127.0.0.1,app_name=cli)")

	internal.PanicOnError(viper.BindPFlags(pflags))

	RootCmd.AddCommand(WriteCmd)
	RootCmd.AddCommand(WatchCmd)
	RootCmd.AddCommand(ClearCmd)
	RootCmd.AddCommand(VersionCmd)
}

func initConfig() {
	viper.SetConfigName("loupe")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/loupe")
	viper.SetEnvPrefix("loupe")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		internal.Debugf(tmpConfig, "using config file: %s", viper.ConfigFileUsed())
	}

	tmpConfig.Verbose = viper.GetBool("verbose")
	tmpConfig.Host = viper.GetString("host")
	tmpConfig.Port = viper.GetInt("port")
	tmpConfig.AppName = viper.GetString("app-name")
	tmpConfig.Room = viper.GetString("room")
	tmpConfig.Timeout = time.Duration(viper.GetUint("timeout")) * time.Millisecond
}

func newLogger() (*loupe.Logger, error) {
	conf := tmpConfig
	if dsnFlag != "" {
		if err := conf.ApplyDSN(dsnFlag); err != nil {
			return nil, err
		}
	}
	internal.Debugf(conf, "%s", conf)

	logger, err := loupe.New(conf)
	if err != nil {
		return nil, err
	}
	if err := logger.ConnectWait(); err != nil {
		return nil, err
	}
	return logger, nil
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
