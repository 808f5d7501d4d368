// Package memory keeps completion events in process when no Pub/Sub project
// is configured, so local runs still exercise the publish path.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("memory publisher closed")

// Delivery is one accepted publish, numbered in arrival order.
type Delivery struct {
	ID      string
	Topic   string
	Payload any
}

// Publisher appends every accepted event to an in-process log.
type Publisher struct {
	mu         sync.RWMutex
	deliveries []Delivery
	closed     bool
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish appends payload to the log and returns its delivery ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}
	id := fmt.Sprintf("memory-%d", len(p.deliveries)+1)
	p.deliveries = append(p.deliveries, Delivery{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Deliveries returns a copy of the log.
func (p *Publisher) Deliveries() []Delivery {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Delivery(nil), p.deliveries...)
}

// Completions returns the completion events sent to topic, oldest first.
// Payloads of any other type are skipped.
func (p *Publisher) Completions(topic string) []wordcount.Completion {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []wordcount.Completion
	for _, d := range p.deliveries {
		if d.Topic != topic {
			continue
		}
		if c, ok := d.Payload.(wordcount.Completion); ok {
			out = append(out, c)
		}
	}
	return out
}

// Close stops accepting events. The log stays readable.
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
