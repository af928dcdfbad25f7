// Package id mints ULIDs for fills and trade records.
package id

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrTimeRange is returned for times a ULID timestamp cannot hold: before
// the Unix epoch or after ulid.MaxTime.
var ErrTimeRange = errors.New("time outside ULID range")

var (
	epoch   = time.UnixMilli(0)
	maxTime = ulid.Time(ulid.MaxTime())
)

// Valid reports whether t can be encoded as a ULID timestamp.
func Valid(t time.Time) bool {
	return !t.Before(epoch) && !t.After(maxTime)
}

// Generator mints monotonic ULIDs. IDs stamped within the same millisecond
// keep increasing. The zero value is not usable; call NewGenerator.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// At returns a ULID stamped with t.
func (g *Generator) At(t time.Time) (string, error) {
	if !Valid(t) {
		return "", fmt.Errorf("%w: %s", ErrTimeRange, t.Format(time.RFC3339Nano))
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

var std = NewGenerator()

// At stamps an ID with t using the package generator. Replayed fills use
// their event time so IDs sort with the ledger history.
func At(t time.Time) (string, error) { return std.At(t) }

// New returns an ID stamped with the wall clock.
func New() string {
	s, err := std.At(time.Now())
	if err != nil {
		// The wall clock is inside the ULID range until the year 10889.
		panic(err)
	}
	return s
}
