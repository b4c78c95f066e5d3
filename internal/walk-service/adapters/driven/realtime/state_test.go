package realtime

import (
	"testing"

	"pawwalk/internal/walk-service/core/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestNextState(t *testing.T) {
	cases := []struct {
		from model.ConnState
		on   connEvent
		to   model.ConnState
		ok   bool
	}{
		{model.ConnDisconnected, evDial, model.ConnConnecting, true},
		{model.ConnConnecting, evEstablished, model.ConnConnected, true},
		{model.ConnConnected, evTransportLost, model.ConnConnecting, true},
		{model.ConnConnecting, evTransportLost, model.ConnConnecting, true},
		{model.ConnConnecting, evAuthFailed, model.ConnDisconnected, true},
		{model.ConnConnected, evClose, model.ConnDisconnected, true},
		{model.ConnDisconnected, evClose, model.ConnDisconnected, true},
		{model.ConnConnected, evDial, model.ConnConnected, false},
		{model.ConnDisconnected, evEstablished, model.ConnDisconnected, false},
		{model.ConnDisconnected, evTransportLost, model.ConnDisconnected, false},
	}
	for _, tc := range cases {
		got, ok := nextState(tc.from, tc.on)
		assert.Equal(t, tc.to, got, "%s on %s", tc.from, tc.on)
		assert.Equal(t, tc.ok, ok, "%s on %s", tc.from, tc.on)
	}
}
