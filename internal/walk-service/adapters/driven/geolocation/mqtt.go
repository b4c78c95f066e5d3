package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pawwalk/internal/mylogger"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/ports/driven"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	collarTopicFormat = "collars/%d/fix"
	subscribeTimeout  = 5 * time.Second
)

type collarFix struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	AccuracyM float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// CollarFeed reads fixes that a GPS collar publishes over MQTT.
type CollarFeed struct {
	client mqtt.Client
	dogID  model.DogID
	log    mylogger.Logger
}

var _ driven.IGeolocator = (*CollarFeed)(nil)

func NewMQTTClient(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

func NewCollarFeed(client mqtt.Client, dogID model.DogID, log mylogger.Logger) *CollarFeed {
	return &CollarFeed{client: client, dogID: dogID, log: log}
}

func (f *CollarFeed) Topic() string {
	return fmt.Sprintf(collarTopicFormat, f.dogID)
}

func (f *CollarFeed) Watch(ctx context.Context, onFix func(model.Fix)) (func(), error) {
	topic := f.Topic()
	token := f.client.Subscribe(topic, 1, f.handler(onFix))
	if !token.WaitTimeout(subscribeTimeout) {
		return nil, fmt.Errorf("mqtt subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	f.log.Action("collar_watch").Info("watching collar fixes", "topic", topic)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			f.client.Unsubscribe(topic)
		case <-stop:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			f.client.Unsubscribe(topic).WaitTimeout(subscribeTimeout)
		})
	}, nil
}

func (f *CollarFeed) handler(onFix func(model.Fix)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		fix, err := parseCollarFix(msg.Payload())
		if err != nil {
			f.log.Action("collar_fix").Warn("invalid collar fix", "topic", msg.Topic(), "error", err.Error())
			return
		}
		onFix(fix)
	}
}

func parseCollarFix(payload []byte) (model.Fix, error) {
	var raw collarFix
	if err := json.Unmarshal(payload, &raw); err != nil {
		return model.Fix{}, fmt.Errorf("decode: %w", err)
	}
	if raw.Lat < -90 || raw.Lat > 90 {
		return model.Fix{}, fmt.Errorf("lat: must be between -90 and 90")
	}
	if raw.Lng < -180 || raw.Lng > 180 {
		return model.Fix{}, fmt.Errorf("lng: must be between -180 and 180")
	}
	if raw.Timestamp <= 0 {
		return model.Fix{}, fmt.Errorf("timestamp: must be positive")
	}
	return model.Fix{
		Point:     model.GeoPoint{Lat: raw.Lat, Lng: raw.Lng},
		AccuracyM: raw.AccuracyM,
		At:        time.UnixMilli(raw.Timestamp),
	}, nil
}
