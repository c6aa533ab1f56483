package config

import "time"

const (
	DefaultProvider   = "ollama"
	DefaultNumCtx     = 16384
	DefaultMaxRetries = 0
	DefaultTimeout    = 5 * time.Minute

	DefaultMaxToolRounds = 8

	DefaultMaxRunes = 8_000

	DefaultCaptionSkip   = 80
	DefaultCaptionGroup  = 1
	DefaultCaptionPrefix = "Next line: "

	DefaultArtifactsDir = ".director"
)

// DefaultPrompt is the director persona sent as the first turn.
const DefaultPrompt = "You are a director for a video production of a church service. " +
	"You have control over the camera angles. You will be given a live script of the service.  " +
	"At any time, you can change the camera view to best optimize the viewers experience."
