package config

import (
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	conf := New()
	*conf = *Default
	if err := conf.Validate(); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestValidate(t *testing.T) {
	checks := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"bad port", func(c *Config) { c.Port = -1 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero reconnect interval", func(c *Config) { c.ReconnectInterval = 0 }},
		{"zero backlog", func(c *Config) { c.BacklogKB = 0 }},
		{"zero async queue", func(c *Config) { c.AsyncEnabled = true; c.AsyncKB = 0 }},
	}

	for _, check := range checks {
		t.Run(check.name, func(t *testing.T) {
			conf := New()
			*conf = *Default
			check.mutate(conf)
			if err := conf.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestAddr(t *testing.T) {
	conf := New()
	*conf = *Default
	if addr := conf.Addr(); addr != "127.0.0.1:4228" {
		t.Fatalf("unexpected addr: %q", addr)
	}
	if network := conf.Network(); network != "tcp" {
		t.Fatalf("unexpected network: %q", network)
	}

	conf.Pipe = "myapp"
	if addr := conf.Addr(); addr != "/tmp/myapp.sock" {
		t.Fatalf("unexpected addr: %q", addr)
	}
	if network := conf.Network(); network != "unix" {
		t.Fatalf("unexpected network: %q", network)
	}

	conf.PipePath = "/run/loupe.sock"
	if addr := conf.Addr(); addr != "/run/loupe.sock" {
		t.Fatalf("unexpected addr: %q", addr)
	}
}

func TestEffectiveKeepOpen(t *testing.T) {
	conf := New()
	*conf = *Default

	conf.BacklogEnabled = true
	conf.KeepOpen = false
	if conf.EffectiveKeepOpen() {
		t.Fatal("expected keep-open to be off")
	}

	// a disabled backlog forces keep-open
	conf.BacklogEnabled = false
	if !conf.EffectiveKeepOpen() {
		t.Fatal("expected keep-open to be forced on")
	}
}

func TestCapacities(t *testing.T) {
	conf := New()
	*conf = *Default
	if n := conf.BacklogCapacity(); n != 2048*1024 {
		t.Fatalf("unexpected backlog capacity: %d", n)
	}
	if n := conf.AsyncCapacity(); n != 2048*1024 {
		t.Fatalf("unexpected async capacity: %d", n)
	}
}

func TestEffectiveHostName(t *testing.T) {
	conf := New()
	*conf = *Default
	conf.HostName = "myhost"
	if name := conf.EffectiveHostName(); name != "myhost" {
		t.Fatalf("unexpected host name: %q", name)
	}

	conf.HostName = ""
	if name := conf.EffectiveHostName(); name == "myhost" {
		t.Fatalf("expected OS hostname, got %q", name)
	}
}

func TestDSN(t *testing.T) {
	conf, err := ParseDSN("tcp(host=10.0.0.5,port=4444,app_name=worker,timeout=1500,reconnect=yes,reconnect_interval=250)")
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if conf.Host != "10.0.0.5" || conf.Port != 4444 || conf.AppName != "worker" {
		t.Fatalf("unexpected config: %s", conf)
	}
	if conf.Timeout != 1500*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", conf.Timeout)
	}
	if !conf.Reconnect || conf.ReconnectInterval != 250*time.Millisecond {
		t.Fatalf("unexpected reconnect settings: %s", conf)
	}
}

func TestDSNDefaults(t *testing.T) {
	conf, err := ParseDSN("tcp()")
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if conf.Host != Default.Host || conf.Port != Default.Port {
		t.Fatalf("expected defaults, got %s", conf)
	}
}

func TestDSNPipe(t *testing.T) {
	conf, err := ParseDSN("pipe(pipe=worker)")
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if conf.Network() != "unix" || conf.Addr() != "/tmp/worker.sock" {
		t.Fatalf("unexpected pipe config: %s", conf)
	}

	conf, err = ParseDSN("pipe()")
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if conf.Pipe != "loupe" {
		t.Fatalf("expected default pipe name, got %q", conf.Pipe)
	}
}

func TestDSNQueues(t *testing.T) {
	conf, err := ParseDSN("tcp(backlog.enabled=true,backlog.queue=64,backlog.keep_open=no,async.enabled=on,async.queue=128,async.throttle=1,async.clear_on_disconnect=true)")
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if !conf.BacklogEnabled || conf.BacklogKB != 64 || conf.KeepOpen {
		t.Fatalf("unexpected backlog settings: %s", conf)
	}
	if !conf.AsyncEnabled || conf.AsyncKB != 128 || !conf.AsyncThrottle || !conf.AsyncClearOnDisconnect {
		t.Fatalf("unexpected async settings: %s", conf)
	}
}

func TestDSNErrors(t *testing.T) {
	for _, dsn := range []string{
		"",
		"tcp",
		"tcp(host=x",
		"udp(host=x)",
		"tcp(hosty=x)",
		"tcp(port=nope)",
		"tcp(host)",
		"tcp(reconnect=maybe)",
	} {
		if _, err := ParseDSN(dsn); err == nil {
			t.Fatalf("expected error for %q", dsn)
		}
	}
}

func TestApplyDSNOverrides(t *testing.T) {
	conf := New()
	*conf = *Default
	conf.AppName = "base"

	if err := conf.ApplyDSN("tcp(port=9999)"); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if conf.Port != 9999 {
		t.Fatalf("unexpected port: %d", conf.Port)
	}
	if conf.AppName != "base" {
		t.Fatalf("expected app name to survive, got %q", conf.AppName)
	}
}
