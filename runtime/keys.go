package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	keyTimeLayout = "2006-01-02T15:04:05.000000000"
	maxKeySeq     = 999999
)

// KeyGenerator produces strictly increasing ISO-8601 history keys,
// e.g. "2026-10-15T08:30:00.123456789Z-000000".
// The fraction is always nine digits wide so keys sort lexicographically.
// When the clock does not move forward between two calls (same nanosecond,
// coarse clock or clock stepping back) the previous instant is reused and the
// six-digit suffix is incremented.
type KeyGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
	seq  int
}

func NewKeyGenerator(now func() time.Time) *KeyGenerator {
	if now == nil {
		now = time.Now
	}
	return &KeyGenerator{now: now}
}

// Next returns a key greater than every key returned or seeded before.
func (g *KeyGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now().UTC()
	switch {
	case t.After(g.last):
		g.last, g.seq = t, 0
	case g.seq < maxKeySeq:
		g.seq++
	default:
		g.last, g.seq = g.last.Add(time.Nanosecond), 0
	}
	return formatKey(g.last, g.seq)
}

// Seed makes the generator continue after an existing key, so that keys
// stay ordered across restarts even if the clock went backwards.
func (g *KeyGenerator) Seed(key string) error {
	t, seq, err := parseKey(key)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if t.After(g.last) || (t.Equal(g.last) && seq > g.seq) {
		g.last, g.seq = t, seq
	}
	return nil
}

func formatKey(t time.Time, seq int) string {
	return fmt.Sprintf("%sZ-%06d", t.UTC().Format(keyTimeLayout), seq)
}

func parseKey(key string) (time.Time, int, error) {
	stamp, suffix, ok := strings.Cut(key, "Z-")
	if !ok {
		return time.Time{}, 0, fmt.Errorf("malformed history key %q", key)
	}
	t, err := time.ParseInLocation(keyTimeLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed history key %q: %w", key, err)
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed history key %q: %w", key, err)
	}
	return t, seq, nil
}

// KeyTime returns the instant encoded in a history key.
func KeyTime(key string) (time.Time, error) {
	t, _, err := parseKey(key)
	return t, err
}
