package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventsFile is the JSONL file name under ArtifactsDir.
const EventsFile = "events.jsonl"

// writeMu serializes appends so concurrent tool dispatch cannot interleave lines.
var writeMu sync.Mutex

// Emit writes a single JSON line to <ArtifactsDir>/events.jsonl when observation is on.
// It augments fields with RFC3339Nano time and the event name.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	// Make a shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	log := zap.L().Named("telemetry")
	b, err := json.Marshal(m)
	if err != nil {
		log.Warn("marshal event", zap.String("event", name), zap.Error(err))
		return
	}

	dir := ArtifactsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("create artifacts dir", zap.String("dir", dir), zap.Error(err))
		return
	}

	path := filepath.Join(dir, EventsFile)
	writeMu.Lock()
	defer writeMu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn("open events file", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		log.Warn("write events file", zap.String("path", path), zap.Error(err))
	}
}
