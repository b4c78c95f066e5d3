package geolocation

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"pawwalk/internal/geogrid"
	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/ports/driven"
)

// Simulator produces a wandering walk around a start point. It stands in for
// a device GPS in the CLI and in demos.
type Simulator struct {
	start    model.GeoPoint
	interval time.Duration
	stepM    float64
	rng      *rand.Rand
	mu       sync.Mutex
}

var _ driven.IGeolocator = (*Simulator)(nil)

func NewSimulator(start model.GeoPoint, interval time.Duration, stepM float64, seed int64) *Simulator {
	return &Simulator{
		start:    start,
		interval: interval,
		stepM:    stepM,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulator) Watch(ctx context.Context, onFix func(model.Fix)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(s.interval)
		defer t.Stop()

		pos := s.start
		heading := s.float() * 2 * math.Pi
		onFix(model.Fix{Point: pos, AccuracyM: 5, At: time.Now()})

		for {
			select {
			case <-t.C:
				heading += (s.float() - 0.5) * math.Pi / 3
				pos = step(pos, heading, s.stepM)
				onFix(model.Fix{Point: pos, AccuracyM: 3 + s.float()*7, At: time.Now()})
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func (s *Simulator) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// step moves p by meters along heading (radians clockwise from north).
func step(p model.GeoPoint, heading, meters float64) model.GeoPoint {
	dLat := meters * math.Cos(heading) / geogrid.MetersPerDegree
	dLng := meters * math.Sin(heading) / (geogrid.MetersPerDegree * math.Cos(p.Lat*math.Pi/180))
	return model.GeoPoint{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}
