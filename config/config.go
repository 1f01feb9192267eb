package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Config holds configuration variables for a viewer connection.
type Config struct {
	// Verbose prints debugging information.
	Verbose bool `json:"verbose"`

	// Host is the viewer TCP host.
	Host string `json:"host"`

	// Port is the viewer TCP port.
	Port int `json:"port"`

	// Pipe is a named local socket. When set, the connection uses a unix
	// domain socket instead of TCP.
	Pipe string `json:"pipe"`

	// PipePath overrides the platform socket path derived from Pipe.
	PipePath string `json:"pipe-path"`

	// Timeout governs the connect and handshake step, and individual frame
	// writes.
	Timeout time.Duration `json:"timeout"`

	// AppName is included in the connection header and in log entries.
	AppName string `json:"app-name"`

	// HostName is included in the connection header and in log entries.
	// Defaults to the OS hostname.
	HostName string `json:"host-name"`

	// Room is the logical log partition announced in the connection header.
	Room string `json:"room"`

	// Reconnect enables automatic reconnection.
	Reconnect bool `json:"reconnect"`

	// ReconnectInterval is the minimum gap between reconnect attempts.
	ReconnectInterval time.Duration `json:"reconnect-interval"`

	// BacklogEnabled buffers records while the connection is down.
	BacklogEnabled bool `json:"backlog-enabled"`

	// BacklogKB is the backlog capacity in kilobytes.
	BacklogKB int `json:"backlog-queue"`

	// KeepOpen keeps the connection open across record writes. Ignored
	// (treated as true) when the backlog is disabled.
	KeepOpen bool `json:"backlog-keep-open"`

	// AsyncEnabled routes records through the background scheduler.
	AsyncEnabled bool `json:"async-enabled"`

	// AsyncKB is the scheduler queue capacity in kilobytes.
	AsyncKB int `json:"async-queue"`

	// AsyncThrottle blocks producers while the scheduler queue is full.
	AsyncThrottle bool `json:"async-throttle"`

	// AsyncClearOnDisconnect discards queued commands when disconnecting.
	AsyncClearOnDisconnect bool `json:"async-clear-on-disconnect"`
}

// New returns a new configuration object
func New() *Config {
	return &Config{}
}

// Default is the default client configuration.
var Default = &Config{
	Host:              "127.0.0.1",
	Port:              4228,
	Timeout:           30 * time.Second,
	AppName:           "App",
	Room:              "default",
	Reconnect:         true,
	ReconnectInterval: 3 * time.Second,
	BacklogEnabled:    true,
	BacklogKB:         2048,
	KeepOpen:          true,
	AsyncEnabled:      false,
	AsyncKB:           2048,
	AsyncThrottle:     false,
}

func (c *Config) String() string {
	return fmt.Sprintf("%+v", *c)
}

// IsVerbose reports whether debug output is enabled.
func (c *Config) IsVerbose() bool { return c.Verbose }

// Validate returns an error pointing to incorrect values for the
// configuration, if any.
func (c *Config) Validate() error {
	if c.Pipe == "" && c.PipePath == "" {
		if c.Host == "" {
			return errors.New("host must be set")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return errors.Errorf("invalid port: %d", c.Port)
		}
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Reconnect && c.ReconnectInterval <= 0 {
		return errors.New("reconnect-interval must be positive")
	}
	if c.BacklogEnabled && c.BacklogKB <= 0 {
		return errors.New("backlog-queue must be positive")
	}
	if c.AsyncEnabled && c.AsyncKB <= 0 {
		return errors.New("async-queue must be positive")
	}
	return nil
}

// Network returns the network to dial, "tcp" or "unix".
func (c *Config) Network() string {
	if c.Pipe != "" || c.PipePath != "" {
		return "unix"
	}
	return "tcp"
}

// Addr returns the dial address for the configured endpoint.
func (c *Config) Addr() string {
	if c.PipePath != "" {
		return c.PipePath
	}
	if c.Pipe != "" {
		return fmt.Sprintf("/tmp/%s.sock", c.Pipe)
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// EffectiveHostName resolves the host name announced to the viewer.
func (c *Config) EffectiveHostName() string {
	if c.HostName != "" {
		return c.HostName
	}
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

// EffectiveKeepOpen reports whether the connection stays open across writes.
// A disabled backlog forces keep-open since there is nowhere to buffer
// between per-write connections.
func (c *Config) EffectiveKeepOpen() bool {
	return !c.BacklogEnabled || c.KeepOpen
}

// BacklogCapacity returns the backlog capacity in bytes.
func (c *Config) BacklogCapacity() int {
	return c.BacklogKB * 1024
}

// AsyncCapacity returns the scheduler queue capacity in bytes.
func (c *Config) AsyncCapacity() int {
	return c.AsyncKB * 1024
}
