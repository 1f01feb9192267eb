// Package loupe is a client library for streaming structured log records
// to a live viewer over TCP or unix sockets.
//
// The top level Logger provides leveled messages, named watches, method
// and process flow tracking, and binary data channels. Records are
// buffered while the viewer is unreachable and replayed in order on
// connect, so applications can log unconditionally without coupling their
// uptime to the viewer's.
//
//	logger, err := loupe.Dial("tcp(host=127.0.0.1,app_name=worker)")
//	if err != nil {
//		// the dsn was invalid; connection failures are not fatal
//	}
//	defer logger.Close()
//
//	logger.Message("started")
//	logger.WatchInt("jobs", 17)
package loupe
