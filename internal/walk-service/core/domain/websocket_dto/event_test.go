package websocketdto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pawwalk/internal/walk-service/core/myerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVariants(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    Inbound
	}{
		{
			name:    "connected",
			payload: `{"type":"CONNECTED","data":{"walkId":"w-1","dogId":1,"message":"ok"}}`,
			want:    Connected{WalkID: "w-1", DogID: 1, Message: "ok"},
		},
		{
			name:    "occupied",
			payload: `{"type":"BLOCK_OCCUPIED","data":{"blockId":"P_37.386800_127.124700","dogId":5,"occupiedAt":"2026-10-15T09:00:00Z"}}`,
			want: BlockOccupied{
				BlockID:    "P_37.386800_127.124700",
				DogID:      5,
				OccupiedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "occupy failed",
			payload: `{"type":"BLOCK_OCCUPY_FAILED","data":{"blockId":"P_1.000000_2.000000","reason":"STAY_TOO_SHORT"}}`,
			want:    BlockOccupyFailed{BlockID: "P_1.000000_2.000000", Reason: "STAY_TOO_SHORT"},
		},
		{
			name:    "taken",
			payload: `{"type":"BLOCK_TAKEN","data":{"blockId":"P_1.000000_2.000000","previousDogId":5,"newDogId":1,"takenAt":"2026-10-15T09:00:00Z"}}`,
			want: BlockTaken{
				BlockID:       "P_1.000000_2.000000",
				PreviousDogID: 5,
				NewDogID:      1,
				TakenAt:       time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "sync",
			payload: `{"type":"BLOCKS_SYNC","data":{"blocks":[{"blockId":"P_1.000000_2.000000","dogId":3,"occupiedAt":"2026-10-15T09:00:00Z"}]}}`,
			want: BlocksSync{Blocks: []BlockOwner{{
				BlockID:    "P_1.000000_2.000000",
				DogID:      3,
				OccupiedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
			}}},
		},
		{
			name:    "walk ended",
			payload: `{"type":"WALK_ENDED","data":{"walkId":"w-1","occupiedBlockCount":4,"endedAt":"2026-10-15T10:00:00Z"}}`,
			want:    WalkEnded{WalkID: "w-1", OccupiedBlockCount: 4, EndedAt: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)},
		},
		{
			name:    "error",
			payload: `{"type":"ERROR","data":{"code":"WALK_NOT_FOUND","message":"no such walk"}}`,
			want:    ServerError{Code: "WALK_NOT_FOUND", Message: "no such walk"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	payloads := []string{
		`not json`,
		`{"type":"BLOCK_OCCUPIED"}`,
		`{"type":"BLOCK_OCCUPIED","data":null}`,
		`{"type":"BLOCK_OCCUPIED","data":{"dogId":5}}`,
		`{"type":"BLOCK_TAKEN","data":{"blockId":7}}`,
		`{"type":"SOMETHING_ELSE","data":{}}`,
	}
	for _, p := range payloads {
		_, err := Decode([]byte(p))
		assert.True(t, errors.Is(err, myerrors.ErrMalformedMessage), "payload %s: %v", p, err)
	}
}

func TestNewLocationUpdate(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))
	data, err := json.Marshal(NewLocationUpdate(37.5, 127.0, at))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LOCATION_UPDATE","data":{"lat":37.5,"lng":127,"timestamp":"2026-10-15T00:30:00Z"}}`, string(data))
}
