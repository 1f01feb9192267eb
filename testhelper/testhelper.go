// Package testhelper provides utilities shared by tests, including a mock
// viewer that speaks the wire protocol over in-memory pipes.
package testhelper

import (
	"log"
	"runtime/debug"
	"time"

	"github.com/loupelog/loupe/config"
)

// SomeLines are sample messages for test payloads.
var SomeLines = []string{
	"starting worker pool",
	"cache miss for key user:1001",
	"request finished in 23ms",
	"retrying flaky upstream (attempt 2)",
	"shutting down cleanly",
}

// DefaultTestConfig returns a config suitable for fast tests.
func DefaultTestConfig(verbose bool) *config.Config {
	conf := config.New()
	*conf = *config.Default
	conf.Verbose = verbose
	conf.Timeout = 500 * time.Millisecond
	conf.ReconnectInterval = 10 * time.Millisecond
	conf.AppName = "test"
	conf.HostName = "testhost"
	return conf
}

// CheckError fails the program on err. For setup code where a test context
// isn't available.
func CheckError(err error) {
	if err != nil {
		log.Printf("%s", debug.Stack())
		log.Fatalf("Unexpected error %v", err)
	}
}

// WaitForChannel receives from c or fails after a timeout.
func WaitForChannel(c chan struct{}) {
	select {
	case <-c:
	case <-time.After(500 * time.Millisecond):
		log.Printf("%s", debug.Stack())
		log.Fatalf("timed out waiting for receive on channel")
	}
}
