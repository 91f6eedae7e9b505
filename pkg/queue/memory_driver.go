package queue

import (
	"context"
	"errors"
)

var ErrQueueFull = errors.New("queue: memory queue is full")

// MemoryDriver is a channel-backed driver. Jobs do not survive a restart.
type MemoryDriver struct {
	ch chan []byte
}

// NewMemoryDriver buffers up to size jobs.
func NewMemoryDriver(size int) *MemoryDriver {
	if size <= 0 {
		size = 1000
	}
	return &MemoryDriver{ch: make(chan []byte, size)}
}

func (d *MemoryDriver) Push(_ context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.ch:
		return payload, nil
	}
}

// Len is the number of jobs waiting.
func (d *MemoryDriver) Len() int { return len(d.ch) }
