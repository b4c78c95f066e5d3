package realtime

import "pawwalk/internal/walk-service/core/domain/model"

type connEvent int

const (
	evDial connEvent = iota
	evEstablished
	evTransportLost
	evAuthFailed
	evClose
)

func (e connEvent) String() string {
	switch e {
	case evDial:
		return "dial"
	case evEstablished:
		return "established"
	case evTransportLost:
		return "transport_lost"
	case evAuthFailed:
		return "auth_failed"
	case evClose:
		return "close"
	}
	return "unknown"
}

type transition struct {
	from model.ConnState
	on   connEvent
}

var transitions = map[transition]model.ConnState{
	{model.ConnDisconnected, evDial}:        model.ConnConnecting,
	{model.ConnConnecting, evEstablished}:   model.ConnConnected,
	{model.ConnConnecting, evTransportLost}: model.ConnConnecting,
	{model.ConnConnecting, evAuthFailed}:    model.ConnDisconnected,
	{model.ConnConnected, evTransportLost}:  model.ConnConnecting,
	{model.ConnDisconnected, evClose}:       model.ConnDisconnected,
	{model.ConnConnecting, evClose}:         model.ConnDisconnected,
	{model.ConnConnected, evClose}:          model.ConnDisconnected,
}

// nextState reports the state reached from s on e. ok is false when the table
// has no such edge; s is returned unchanged then.
func nextState(s model.ConnState, e connEvent) (model.ConnState, bool) {
	next, ok := transitions[transition{s, e}]
	if !ok {
		return s, false
	}
	return next, true
}
