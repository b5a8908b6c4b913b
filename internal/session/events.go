package session

import (
	"github.com/iudanet/gophcollab/internal/presence"
)

// event одно сообщение в очереди актора; обрабатываются строго по одному
type event interface {
	isEvent()
}

// Join carries what the upgrade request supplied besides the identity.
type Join struct {
	InitialContent    string
	HasInitialContent bool
}

type connectEvent struct {
	conn  presence.Conn
	reply chan error
	join  Join
}

type frameEvent struct {
	connID string
	frame  []byte
}

type disconnectEvent struct {
	connID string
}

// alarmEvent срабатывание единственного таймера; gen отсекает устаревшие
type alarmEvent struct {
	gen uint64
}

type inspectEvent struct {
	reply chan Info
}

type stopEvent struct{}

func (connectEvent) isEvent()    {}
func (frameEvent) isEvent()      {}
func (disconnectEvent) isEvent() {}
func (alarmEvent) isEvent()      {}
func (inspectEvent) isEvent()    {}
func (stopEvent) isEvent()       {}
