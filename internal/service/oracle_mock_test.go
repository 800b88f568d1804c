package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/you/go-airfare-oracle/internal/oracle"
)

// OracleMock prices legs from a table keyed by airline and direction.
type OracleMock struct {
	prices map[string]float64
	fail   map[string]string
	delay  time.Duration

	mu    sync.Mutex
	calls []oracle.Features
}

func legKey(airline, source, destination string) string {
	return airline + "|" + source + "|" + destination
}

func newOracleMock() *OracleMock {
	return &OracleMock{prices: map[string]float64{}, fail: map[string]string{}}
}

// round registers outbound and return prices for one route.
func (m *OracleMock) round(origin, destination string, out, ret map[string]float64) *OracleMock {
	for a, p := range out {
		m.prices[legKey(a, origin, destination)] = p
	}
	for a, p := range ret {
		m.prices[legKey(a, destination, origin)] = p
	}
	return m
}

func (m *OracleMock) Predict(ctx context.Context, f oracle.Features) (float64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, f)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	k := legKey(f.Airline, f.Source, f.Destination)
	if msg, ok := m.fail[k]; ok {
		return 0, errors.New(msg)
	}
	p, ok := m.prices[k]
	if !ok {
		return 0, errors.New("no price for " + k)
	}
	return p, nil
}

func (m *OracleMock) Calls() []oracle.Features {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]oracle.Features(nil), m.calls...)
}
