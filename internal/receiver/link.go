package receiver

import (
	"log"

	"github.com/looplab/fsm"
)

// Link states.
const (
	StateIdle       = "idle"
	StateConnecting = "connecting"
	StateStreaming  = "streaming"
	StateBackoff    = "backoff"
	StateStopped    = "stopped"
)

const (
	evConnect = "connect"
	evUp      = "up"
	evFail    = "fail"
	evStop    = "stop"
)

type link struct {
	name string
	f    *fsm.FSM
}

func newLink(name string) *link {
	l := &link{name: name}
	l.f = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: evConnect, Src: []string{StateIdle, StateBackoff}, Dst: StateConnecting},
			{Name: evUp, Src: []string{StateConnecting}, Dst: StateStreaming},
			{Name: evFail, Src: []string{StateConnecting, StateStreaming}, Dst: StateBackoff},
			{Name: evStop, Src: []string{StateIdle, StateConnecting, StateStreaming, StateBackoff}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				log.Printf("receiver link source=%s from=%s to=%s", l.name, e.Src, e.Dst)
			},
		},
	)
	return l
}

// fire applies an event. Events that are not valid from the current state
// are ignored; the loop only ever asks for the transitions above.
func (l *link) fire(event string) bool {
	return l.f.Event(event) == nil
}

func (l *link) current() string {
	return l.f.Current()
}
