package camera

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-padtrack/pkg/pose"
)

// Queue is a push-fed Source that keeps only the newest frame. A slow
// tracking loop skips stale frames instead of falling behind.
type Queue struct {
	frames chan *pose.Frame
	done   chan struct{}
	once   sync.Once

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		frames: make(chan *pose.Frame, 1),
		done:   make(chan struct{}),
	}
}

// Push offers a frame, replacing any frame not yet consumed. The queue
// numbers every frame itself; producer frame numbers belong in SourceID.
// Returns ErrClosed after Close.
func (q *Queue) Push(f *pose.Frame) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	f.Seq = q.seq.Add(1)

	for {
		select {
		case q.frames <- f:
			return nil
		default:
		}
		// Full: drop the stale frame and retry.
		select {
		case <-q.frames:
			q.dropped.Add(1)
		default:
		}
	}
}

// Next implements Source. A frame already queued is returned even if the
// queue was closed after it arrived.
func (q *Queue) Next(ctx context.Context) (*pose.Frame, error) {
	select {
	case f := <-q.frames:
		return f, nil
	default:
	}

	select {
	case f := <-q.frames:
		return f, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dropped returns how many frames were replaced before being consumed.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close implements Source.
func (q *Queue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}
