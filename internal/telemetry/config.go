package telemetry

import (
	"os"
	"sync"
)

// DefaultArtifactsDir is where events.jsonl lands when no directory is configured.
const DefaultArtifactsDir = ".director"

var (
	mu           sync.RWMutex
	observe      bool
	artifactsDir string
)

func init() {
	// Read once at process start. Configure overrides this via SetObserve.
	observe = os.Getenv("DIRECTOR_OBSERVE_JSON") == "1"
}

// SetObserve enables or disables JSONL emission for the rest of the process.
func SetObserve(on bool) {
	mu.Lock()
	observe = on
	mu.Unlock()
}

// SetArtifactsDir overrides the directory events are written to. An empty
// dir restores the environment/default lookup.
func SetArtifactsDir(dir string) {
	mu.Lock()
	artifactsDir = dir
	mu.Unlock()
}

// ObserveEnabled reports whether JSONL emission is enabled.
func ObserveEnabled() bool {
	// Allow tests to enable mid-run via env override.
	if os.Getenv("DIRECTOR_OBSERVE_JSON") == "1" {
		return true
	}
	mu.RLock()
	defer mu.RUnlock()
	return observe
}

// ArtifactsDir returns the configured directory, then DIRECTOR_ARTIFACTS_DIR,
// then DefaultArtifactsDir.
func ArtifactsDir() string {
	mu.RLock()
	dir := artifactsDir
	mu.RUnlock()
	if dir != "" {
		return dir
	}
	if v := os.Getenv("DIRECTOR_ARTIFACTS_DIR"); v != "" {
		return v
	}
	return DefaultArtifactsDir
}
