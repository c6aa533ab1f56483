package telemetry

import (
	"context"

	"github.com/petasbytes/go-director/internal/metrics"
)

// EmitInputFeatures records size features of a user input without the text itself.
func EmitInputFeatures(ctx context.Context, text string) {
	if !ObserveEnabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	f := metrics.CountFeatures(text)
	Emit("input_features", map[string]any{
		"turn_id":          turnID,
		"features_version": "1",
		"user": map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
		},
	})
}
