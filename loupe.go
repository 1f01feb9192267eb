package loupe

import (
	"fmt"
	"os"
	"time"

	"github.com/loupelog/loupe/client"
	"github.com/loupelog/loupe/config"
	"github.com/loupelog/loupe/protocol"
)

// Logger is the top level handle on a viewer connection. All methods are
// safe for concurrent use. Methods never block on the network when async
// mode is enabled, and never fail the caller: transport problems surface
// through the configured observer.
type Logger struct {
	core    *client.Core
	conf    *config.Config
	session string
	level   protocol.Level
	pid     uint32
}

// New returns a logger for conf. The connection is not started until
// Connect is called.
func New(conf *config.Config) (*Logger, error) {
	return NewWithObserver(conf, nil)
}

// NewWithObserver is like New and registers obs for connection lifecycle
// notifications.
func NewWithObserver(conf *config.Config, obs client.Observer) (*Logger, error) {
	core := client.NewCore()
	if err := core.Configure(conf, obs); err != nil {
		return nil, err
	}
	return &Logger{
		core:    core,
		conf:    conf,
		session: "Main",
		level:   protocol.LevelDebug,
		pid:     uint32(os.Getpid()),
	}, nil
}

// Dial parses dsn, returns a logger, and initiates the connection without
// waiting for it.
func Dial(dsn string) (*Logger, error) {
	conf, err := config.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	logger, err := New(conf)
	if err != nil {
		return nil, err
	}
	logger.Connect()
	return logger, nil
}

// SetDialer replaces the network dialer. Must be called before Connect.
func (l *Logger) SetDialer(d client.Dialer) { l.core.SetDialer(d) }

// Connect initiates the viewer connection without waiting for the
// outcome. Records logged before the connection is up are buffered.
func (l *Logger) Connect() { l.core.Connect() }

// ConnectWait initiates the viewer connection and blocks until the
// attempt completes.
func (l *Logger) ConnectWait() error { return l.core.ConnectWait() }

// Close flushes and tears down the connection. The logger must not be
// used afterwards.
func (l *Logger) Close() error {
	l.core.Disconnect()
	return nil
}

// Stats returns a snapshot of connection and buffer state.
func (l *Logger) Stats() client.Stats { return l.core.Stats() }

// WithSession returns a logger that tags records with the given session
// name. The connection is shared with the parent.
func (l *Logger) WithSession(name string) *Logger {
	out := *l
	out.session = name
	return &out
}

// WithLevel returns a logger that drops records below level. The
// connection is shared with the parent.
func (l *Logger) WithLevel(level protocol.Level) *Logger {
	out := *l
	out.level = level
	return &out
}

func (l *Logger) entry(level protocol.Level, t protocol.LogEntryType, viewer protocol.ViewerID, title string) *protocol.LogEntry {
	e := protocol.NewLogEntry(t, viewer)
	e.Title = title
	e.Level = level
	e.AppName = l.conf.AppName
	e.SessionName = l.session
	e.HostName = l.conf.EffectiveHostName()
	e.PID = l.pid
	e.Timestamp = time.Now()
	return e
}

func (l *Logger) logEntry(level protocol.Level, t protocol.LogEntryType, viewer protocol.ViewerID, title string) {
	if level < l.level {
		return
	}
	l.core.Submit(l.entry(level, t, viewer, title))
}

// Message logs an informational message.
func (l *Logger) Message(format string, args ...interface{}) {
	l.logEntry(protocol.LevelMessage, protocol.EntryMessage, protocol.ViewerTitle, sprintf(format, args...))
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logEntry(protocol.LevelDebug, protocol.EntryDebug, protocol.ViewerTitle, sprintf(format, args...))
}

// Verbose logs a verbose message.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.logEntry(protocol.LevelVerbose, protocol.EntryVerbose, protocol.ViewerTitle, sprintf(format, args...))
}

// Warning logs a warning.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logEntry(protocol.LevelWarning, protocol.EntryWarning, protocol.ViewerTitle, sprintf(format, args...))
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.logEntry(protocol.LevelError, protocol.EntryError, protocol.ViewerTitle, sprintf(format, args...))
}

// Fatal logs a fatal error message. The process is not exited.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.logEntry(protocol.LevelFatal, protocol.EntryFatal, protocol.ViewerTitle, sprintf(format, args...))
}

// Separator inserts a separator line into the log.
func (l *Logger) Separator() {
	l.logEntry(protocol.LevelMessage, protocol.EntrySeparator, protocol.ViewerNone, "")
}

// LogErr logs err with its message as the title. nil errors are ignored.
func (l *Logger) LogErr(err error) {
	if err == nil {
		return
	}
	l.Error("%v", err)
}

// Text logs a message with a text document attached, shown by the viewer
// in a text panel.
func (l *Logger) Text(title, body string) {
	if protocol.LevelMessage < l.level {
		return
	}
	e := l.entry(protocol.LevelMessage, protocol.EntryText, protocol.ViewerData, title)
	e.Data = []byte(body)
	e.DataIsText = true
	l.core.Submit(e)
}

// Binary logs a message with a binary payload attached, shown by the
// viewer in a hex panel.
func (l *Logger) Binary(title string, data []byte) {
	if protocol.LevelMessage < l.level {
		return
	}
	e := l.entry(protocol.LevelMessage, protocol.EntryBinary, protocol.ViewerBinary, title)
	e.Data = data
	l.core.Submit(e)
}

// EnterMethod marks the start of a method in the viewer's call stack
// panel. Pair with LeaveMethod.
func (l *Logger) EnterMethod(name string) {
	l.logEntry(protocol.LevelDebug, protocol.EntryEnterMethod, protocol.ViewerTitle, name)
	l.flow(protocol.FlowEnterMethod, name)
}

// LeaveMethod marks the end of a method in the viewer's call stack panel.
func (l *Logger) LeaveMethod(name string) {
	l.logEntry(protocol.LevelDebug, protocol.EntryLeaveMethod, protocol.ViewerTitle, name)
	l.flow(protocol.FlowLeaveMethod, name)
}

// EnterProcess marks process startup in the viewer's process flow
// toolbox.
func (l *Logger) EnterProcess(name string) {
	l.flow(protocol.FlowEnterProcess, name)
}

// LeaveProcess marks process shutdown in the viewer's process flow
// toolbox.
func (l *Logger) LeaveProcess(name string) {
	l.flow(protocol.FlowLeaveProcess, name)
}

func (l *Logger) flow(t protocol.ProcessFlowType, title string) {
	if protocol.LevelDebug < l.level {
		return
	}
	p := protocol.NewProcessFlow(t, title)
	p.HostName = l.conf.EffectiveHostName()
	p.PID = l.pid
	p.Timestamp = time.Now()
	l.core.Submit(p)
}

// Watch sends a named value to the viewer's watch panel.
func (l *Logger) Watch(name, value string, t protocol.WatchType) {
	if protocol.LevelMessage < l.level {
		return
	}
	w := protocol.NewWatch(name, value, t)
	w.Timestamp = time.Now()
	l.core.Submit(w)
}

// WatchString tracks a string value.
func (l *Logger) WatchString(name, value string) {
	l.Watch(name, value, protocol.WatchString)
}

// WatchInt tracks an integer value.
func (l *Logger) WatchInt(name string, value int64) {
	l.Watch(name, fmt.Sprintf("%d", value), protocol.WatchInteger)
}

// WatchFloat tracks a float value.
func (l *Logger) WatchFloat(name string, value float64) {
	l.Watch(name, fmt.Sprintf("%g", value), protocol.WatchFloat)
}

// WatchBool tracks a boolean value.
func (l *Logger) WatchBool(name string, value bool) {
	l.Watch(name, fmt.Sprintf("%t", value), protocol.WatchBoolean)
}

// Stream sends free-form data on a named channel.
func (l *Logger) Stream(channel string, data []byte, contentType string) {
	s := protocol.NewStream(channel, data, contentType)
	s.Timestamp = time.Now()
	l.core.Submit(s)
}

// ClearLog asks the viewer to clear its log panel.
func (l *Logger) ClearLog() { l.control(protocol.ControlClearLog) }

// ClearWatches asks the viewer to clear its watch panel.
func (l *Logger) ClearWatches() { l.control(protocol.ControlClearWatches) }

// ClearAutoViews asks the viewer to close its auto views.
func (l *Logger) ClearAutoViews() { l.control(protocol.ControlClearAutoViews) }

// ClearProcessFlow asks the viewer to clear its process flow toolbox.
func (l *Logger) ClearProcessFlow() { l.control(protocol.ControlClearProcessFlow) }

// ClearAll asks the viewer to clear everything.
func (l *Logger) ClearAll() { l.control(protocol.ControlClearAll) }

func (l *Logger) control(t protocol.ControlCommandType) {
	l.core.Submit(protocol.NewControlCommand(t))
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
