package captions

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cue is one caption block.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

var (
	timingRe = regexp.MustCompile(`^\s*(\d+):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{2}):(\d{2})[,.](\d{1,3})`)
	tagRe    = regexp.MustCompile(`</?[a-zA-Z][^>]*>|\{\\[^}]*\}`)
)

// LoadFile parses the SRT file at path.
func LoadFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("captions: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads SRT blocks separated by blank lines. Blocks without a timing
// line, with a malformed timing line or without text are logged and skipped.
// Multi-line text is joined with spaces and formatting tags are removed.
func Parse(r io.Reader) ([]Cue, error) {
	var (
		cues  []Cue
		block []string
		line  int
	)
	log := zap.L().Named("captions")
	flush := func() {
		if len(block) == 0 {
			return
		}
		cue, ok, err := parseBlock(block, len(cues)+1)
		switch {
		case err != nil:
			log.Warn("skip malformed block", zap.Int("line", line), zap.Error(err))
		case ok:
			cues = append(cues, cue)
		}
		block = block[:0]
	}

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line++
		text := strings.TrimRight(s.Text(), "\r")
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.TrimSpace(text) == "" {
			flush()
			continue
		}
		block = append(block, text)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("captions: read: %w", err)
	}
	flush()
	return cues, nil
}

func parseBlock(lines []string, fallbackIndex int) (Cue, bool, error) {
	cue := Cue{Index: fallbackIndex}
	i := 0
	if n, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
		cue.Index = n
		i++
	}
	if i >= len(lines) || !strings.Contains(lines[i], "-->") {
		zap.L().Named("captions").Debug("skip block without timing", zap.Int("index", cue.Index))
		return Cue{}, false, nil
	}
	m := timingRe.FindStringSubmatch(lines[i])
	if m == nil {
		return Cue{}, false, fmt.Errorf("invalid timing %q", lines[i])
	}
	cue.Start = timestamp(m[1:5])
	cue.End = timestamp(m[5:9])
	if cue.End < cue.Start {
		return Cue{}, false, fmt.Errorf("cue %d ends before it starts", cue.Index)
	}

	parts := make([]string, 0, len(lines)-i-1)
	for _, l := range lines[i+1:] {
		if t := strings.TrimSpace(tagRe.ReplaceAllString(l, "")); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return Cue{}, false, nil
	}
	cue.Text = strings.Join(parts, " ")
	return cue, true, nil
}

// timestamp converts regexp groups h, m, s, ms. The regexp guarantees digits.
func timestamp(g []string) time.Duration {
	h, _ := strconv.Atoi(g[0])
	m, _ := strconv.Atoi(g[1])
	s, _ := strconv.Atoi(g[2])
	ms, _ := strconv.Atoi((g[3] + "00")[:3])
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}
