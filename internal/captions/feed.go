package captions

import (
	"context"
	"strings"
	"time"
)

// DefaultPrefix introduces each caption batch in the user turn.
const DefaultPrefix = "Next line: "

// Batches drops the first skip cues and groups the rest into batches of at
// most size cues. size < 1 is treated as 1.
func Batches(cues []Cue, skip, size int) [][]Cue {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(cues) {
		return nil
	}
	if size < 1 {
		size = 1
	}
	rest := cues[skip:]
	out := make([][]Cue, 0, (len(rest)+size-1)/size)
	for len(rest) > 0 {
		n := min(size, len(rest))
		out = append(out, rest[:n:n])
		rest = rest[n:]
	}
	return out
}

// Prompt renders a batch as prefix followed by the cue texts joined with spaces.
func Prompt(prefix string, batch []Cue) string {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	return prefix + strings.Join(texts, " ")
}

// Pacer replays cues in real time, scaled by Speed, relative to the first
// cue it is asked to wait for.
type Pacer struct {
	Speed float64

	started bool
	origin  time.Duration
	t0      time.Time
	now     func() time.Time
}

func NewPacer(speed float64) *Pacer {
	return &Pacer{Speed: speed, now: time.Now}
}

// Wait blocks until the cue starting at offset is due. The first call returns immediately.
func (p *Pacer) Wait(ctx context.Context, offset time.Duration) error {
	if !p.started {
		p.started = true
		p.origin = offset
		p.t0 = p.now()
		return ctx.Err()
	}
	d := p.Delay(offset)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay is how long until the cue at offset is due. It is 0 before the
// first Wait, for cues already due, and when Speed is not positive.
func (p *Pacer) Delay(offset time.Duration) time.Duration {
	if !p.started || p.Speed <= 0 {
		return 0
	}
	due := time.Duration(float64(offset-p.origin) / p.Speed)
	return max(due-p.now().Sub(p.t0), 0)
}
