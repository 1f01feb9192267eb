package client

// Observer receives notifications about connection lifecycle events. All
// methods may be called from the scheduler goroutine and must not block.
type Observer interface {
	// OnConnect is called after a connection is established and the
	// backlog has been flushed. banner is the identification line sent by
	// the viewer.
	OnConnect(banner string)
	// OnDisconnect is called after the connection is torn down.
	OnDisconnect()
	// OnError is called when a connection attempt or write fails.
	OnError(err error)
	// OnPacketDropped is called when buffered records are evicted to make
	// room, with the number of records dropped.
	OnPacketDropped(n int)
}

// NoopObserver ignores all notifications.
type NoopObserver struct{}

// OnConnect implements Observer
func (NoopObserver) OnConnect(string) {}

// OnDisconnect implements Observer
func (NoopObserver) OnDisconnect() {}

// OnError implements Observer
func (NoopObserver) OnError(error) {}

// OnPacketDropped implements Observer
func (NoopObserver) OnPacketDropped(int) {}

func notifyConnect(obs Observer, banner string) {
	if obs != nil {
		obs.OnConnect(banner)
	}
}

func notifyDisconnect(obs Observer) {
	if obs != nil {
		obs.OnDisconnect()
	}
}

func notifyError(obs Observer, err error) {
	if obs != nil {
		obs.OnError(err)
	}
}

func notifyDropped(obs Observer, n int) {
	if obs != nil && n > 0 {
		obs.OnPacketDropped(n)
	}
}
