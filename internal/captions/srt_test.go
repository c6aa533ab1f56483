package captions_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/petasbytes/go-director/internal/captions"
)

const service = "\ufeff1\r\n00:00:01,600 --> 00:00:04,200\r\nGood morning, church.\r\n\r\n" +
	"2\n00:00:04,300 --> 00:00:06,000\nPlease stand\n<i>as we pray.</i>\n\n\n" +
	"3\n00:01:02.5 --> 00:01:03,000 X1:100 X2:200\nAmen.\n"

func TestParse_Service(t *testing.T) {
	cues, err := captions.Parse(strings.NewReader(service))
	require.NoError(t, err)
	require.Len(t, cues, 3)

	assert.Equal(t, captions.Cue{Index: 1, Start: 1600 * time.Millisecond, End: 4200 * time.Millisecond, Text: "Good morning, church."}, cues[0])
	assert.Equal(t, "Please stand as we pray.", cues[1].Text)
	assert.Equal(t, time.Minute+2*time.Second+500*time.Millisecond, cues[2].Start)
	assert.Equal(t, 3, cues[2].Index)
}

func TestParse_SkipsBlocksWithoutTimingOrText(t *testing.T) {
	in := "WEBVTT-ish header\n\n" +
		"1\n00:00:01,000 --> 00:00:02,000\n\n" +
		"2\n00:00:02,000 --> 00:00:03,000\n<b></b>\n\n" +
		"00:00:03,000 --> 00:00:04,000\nno index line\n"
	cues, err := captions.Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "no index line", cues[0].Text)
	assert.Equal(t, 1, cues[0].Index)
}

func TestParse_SkipsMalformedTiming(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	in := "1\n00:00:01,000 --> 00:00:02,000\nWelcome.\n\n" +
		"2\n00:00:xx --> 00:00:03,000\nno millis\n\n" +
		"3\n00:00:05,000 --> 00:00:04,000\nbackwards\n\n" +
		"4\n00:00:06,000 --> 00:00:07,000\nLet us pray.\n"
	cues, err := captions.Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, cues, 2)
	assert.Equal(t, "Welcome.", cues[0].Text)
	assert.Equal(t, 4, cues[1].Index)
	assert.Equal(t, "Let us pray.", cues[1].Text)

	skipped := logs.FilterMessage("skip malformed block").All()
	require.Len(t, skipped, 2)
	assert.Contains(t, skipped[0].ContextMap()["error"], "invalid timing")
	assert.Contains(t, skipped[1].ContextMap()["error"], "ends before it starts")
}

func TestParse_Empty(t *testing.T) {
	cues, err := captions.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cues)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.srt")
	require.NoError(t, os.WriteFile(path, []byte(service), 0o644))

	cues, err := captions.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cues, 3)

	_, err = captions.LoadFile(filepath.Join(t.TempDir(), "missing.srt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func cues(n int) []captions.Cue {
	out := make([]captions.Cue, n)
	for i := range out {
		out[i] = captions.Cue{Index: i + 1, Text: string(rune('a' + i))}
	}
	return out
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name       string
		n          int
		skip, size int
		want       []string
	}{
		{"one per batch", 3, 0, 1, []string{"a", "b", "c"}},
		{"skip leading", 5, 2, 1, []string{"c", "d", "e"}},
		{"grouped with remainder", 5, 0, 2, []string{"a b", "c d", "e"}},
		{"skip everything", 3, 3, 1, nil},
		{"size clamped", 2, -1, 0, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, b := range captions.Batches(cues(tt.n), tt.skip, tt.size) {
				got = append(got, captions.Prompt("", b))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatches_DoNotAliasFollowingCues(t *testing.T) {
	all := cues(4)
	batches := captions.Batches(all, 0, 2)
	batches[0] = append(batches[0], captions.Cue{Text: "x"})
	assert.Equal(t, "c", all[2].Text)
}

func TestPrompt(t *testing.T) {
	batch := []captions.Cue{{Text: "Let us pray."}, {Text: "Amen."}}
	assert.Equal(t, "Next line: Let us pray. Amen.", captions.Prompt(captions.DefaultPrefix, batch))
}
