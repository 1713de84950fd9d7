// Package sma provides a fixed-window simple moving average.
//
// Average keeps the last Period samples in a ring over a fixed slice and
// caches their running total, so Add and Avg are both O(1) and memory is
// bounded by the period.
package sma

import (
	"errors"
	"fmt"
)

// ErrInvalidPeriod is returned when a window is constructed with a period below 1.
var ErrInvalidPeriod = errors.New("sma: period must be at least 1")

// Average is a simple moving average over the most recent Period samples.
// It is not safe for concurrent use.
type Average struct {
	period int
	window []float64

	// head is the oldest valid slot, tail the next write slot.
	// head == tail after initialization means the window is full.
	head, tail int
	started    bool

	total float64
}

// New creates an Average over the last period samples.
func New(period int) (*Average, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPeriod, period)
	}
	return &Average{
		period: period,
		window: make([]float64, period),
	}, nil
}

// MustNew is like New but panics on an invalid period.
func MustNew(period int) *Average {
	a, err := New(period)
	if err != nil {
		panic(err)
	}
	return a
}

// Add records a sample, evicting the oldest one if the window is full.
func (a *Average) Add(v float64) {
	if !a.started {
		a.window[0] = v
		a.head = 0
		a.tail = a.next(0)
		a.total = v
		a.started = true
		return
	}

	if a.head == a.tail {
		a.total -= a.window[a.head]
		a.head = a.next(a.head)
	}

	a.window[a.tail] = v
	a.tail = a.next(a.tail)
	a.total += v
}

// Avg returns the mean of the samples in the window, or 0 if none were added.
func (a *Average) Avg() float64 {
	n := a.Len()
	if n == 0 {
		return 0
	}
	return a.total / float64(n)
}

// Len returns the number of samples currently in the window.
func (a *Average) Len() int {
	if !a.started {
		return 0
	}
	if a.head == a.tail {
		return a.period
	}
	return (a.period + a.tail - a.head) % a.period
}

// Period returns the window capacity.
func (a *Average) Period() int {
	return a.period
}

func (a *Average) next(i int) int {
	i++
	if i >= a.period {
		return 0
	}
	return i
}
