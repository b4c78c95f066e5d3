package websocketdto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pawwalk/internal/walk-service/core/myerrors"
)

// Server message types
const (
	MessageTypeConnected         = "CONNECTED"
	MessageTypeBlockOccupied     = "BLOCK_OCCUPIED"
	MessageTypeBlockOccupyFailed = "BLOCK_OCCUPY_FAILED"
	MessageTypeBlockTaken        = "BLOCK_TAKEN"
	MessageTypeBlocksSync        = "BLOCKS_SYNC"
	MessageTypeWalkEnded         = "WALK_ENDED"
	MessageTypeError             = "ERROR"

	MessageTypeLocationUpdate = "LOCATION_UPDATE"
)

// Event is the envelope every realtime body is wrapped in.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound is one of the server-pushed variants below.
type Inbound interface {
	MessageType() string
}

type Connected struct {
	WalkID  string `json:"walkId"`
	DogID   int64  `json:"dogId"`
	Message string `json:"message"`
}

type BlockOccupied struct {
	BlockID    string    `json:"blockId"`
	DogID      int64     `json:"dogId"`
	OccupiedAt time.Time `json:"occupiedAt"`
}

type BlockOccupyFailed struct {
	BlockID string `json:"blockId"`
	Reason  string `json:"reason"`
}

type BlockTaken struct {
	BlockID       string    `json:"blockId"`
	PreviousDogID int64     `json:"previousDogId"`
	NewDogID      int64     `json:"newDogId"`
	TakenAt       time.Time `json:"takenAt"`
}

type BlockOwner struct {
	BlockID    string    `json:"blockId"`
	DogID      int64     `json:"dogId"`
	OccupiedAt time.Time `json:"occupiedAt"`
}

type BlocksSync struct {
	Blocks []BlockOwner `json:"blocks"`
}

type WalkEnded struct {
	WalkID             string    `json:"walkId"`
	OccupiedBlockCount int       `json:"occupiedBlockCount"`
	EndedAt            time.Time `json:"endedAt"`
}

type ServerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Connected) MessageType() string         { return MessageTypeConnected }
func (BlockOccupied) MessageType() string     { return MessageTypeBlockOccupied }
func (BlockOccupyFailed) MessageType() string { return MessageTypeBlockOccupyFailed }
func (BlockTaken) MessageType() string        { return MessageTypeBlockTaken }
func (BlocksSync) MessageType() string        { return MessageTypeBlocksSync }
func (WalkEnded) MessageType() string         { return MessageTypeWalkEnded }
func (ServerError) MessageType() string       { return MessageTypeError }

// Decode parses a message body into its variant. Unknown types, missing data
// and block events without a block id are all myerrors.ErrMalformedMessage.
func Decode(payload []byte) (Inbound, error) {
	var env Event
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", myerrors.ErrMalformedMessage, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%w: %s without data", myerrors.ErrMalformedMessage, env.Type)
	}

	var (
		msg Inbound
		err error
	)
	switch env.Type {
	case MessageTypeConnected:
		msg, err = decodeData[Connected](env.Data)
	case MessageTypeBlockOccupied:
		var m BlockOccupied
		if m, err = decodeData[BlockOccupied](env.Data); err == nil && m.BlockID == "" {
			err = errors.New("missing blockId")
		}
		msg = m
	case MessageTypeBlockOccupyFailed:
		msg, err = decodeData[BlockOccupyFailed](env.Data)
	case MessageTypeBlockTaken:
		var m BlockTaken
		if m, err = decodeData[BlockTaken](env.Data); err == nil && m.BlockID == "" {
			err = errors.New("missing blockId")
		}
		msg = m
	case MessageTypeBlocksSync:
		msg, err = decodeData[BlocksSync](env.Data)
	case MessageTypeWalkEnded:
		msg, err = decodeData[WalkEnded](env.Data)
	case MessageTypeError:
		msg, err = decodeData[ServerError](env.Data)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", myerrors.ErrMalformedMessage, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", myerrors.ErrMalformedMessage, env.Type, err)
	}
	return msg, nil
}

func decodeData[T any](data json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
