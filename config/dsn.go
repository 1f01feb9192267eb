package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ParseDSN parses a connection string of the form
// protocol(key=value,key=value) into a configuration, starting from the
// defaults. Supported protocols are "tcp" and "pipe".
func ParseDSN(dsn string) (*Config, error) {
	conf := New()
	*conf = *Default
	if err := conf.ApplyDSN(dsn); err != nil {
		return nil, err
	}
	return conf, nil
}

// ApplyDSN applies a connection string on top of an existing configuration.
func (c *Config) ApplyDSN(dsn string) error {
	dsn = strings.TrimSpace(dsn)
	open := strings.IndexByte(dsn, '(')
	if open < 0 || !strings.HasSuffix(dsn, ")") {
		return errors.Errorf("malformed connection string: %q", dsn)
	}

	proto := strings.ToLower(strings.TrimSpace(dsn[:open]))
	switch proto {
	case "tcp":
	case "pipe":
		if c.Pipe == "" {
			c.Pipe = "loupe"
		}
	default:
		return errors.Errorf("unknown protocol: %q", proto)
	}

	body := dsn[open+1 : len(dsn)-1]
	if strings.TrimSpace(body) == "" {
		return nil
	}

	for _, pair := range strings.Split(body, ",") {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			return errors.Errorf("malformed option: %q", pair)
		}
		key := strings.ToLower(strings.TrimSpace(pair[:eq]))
		val := strings.TrimSpace(pair[eq+1:])
		if err := c.applyOption(key, val); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) applyOption(key, val string) error {
	switch key {
	case "host":
		c.Host = val
	case "port":
		n, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "invalid port: %q", val)
		}
		c.Port = n
	case "pipe":
		c.Pipe = val
	case "pipe_path":
		c.PipePath = val
	case "timeout":
		ms, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "invalid timeout: %q", val)
		}
		c.Timeout = time.Duration(ms) * time.Millisecond
	case "app_name":
		c.AppName = val
	case "host_name":
		c.HostName = val
	case "room":
		c.Room = val
	case "reconnect":
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		c.Reconnect = b
	case "reconnect_interval":
		ms, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "invalid reconnect_interval: %q", val)
		}
		c.ReconnectInterval = time.Duration(ms) * time.Millisecond
	case "backlog.enabled":
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		c.BacklogEnabled = b
	case "backlog.queue":
		kb, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "invalid backlog.queue: %q", val)
		}
		c.BacklogKB = kb
	case "backlog.keep_open":
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		c.KeepOpen = b
	case "async.enabled":
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		c.AsyncEnabled = b
	case "async.queue":
		kb, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "invalid async.queue: %q", val)
		}
		c.AsyncKB = kb
	case "async.throttle":
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		c.AsyncThrottle = b
	case "async.clear_on_disconnect":
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		c.AsyncClearOnDisconnect = b
	default:
		return errors.Errorf("unknown option: %q", key)
	}
	return nil
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean: %q", val)
}
