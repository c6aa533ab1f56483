package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/petasbytes/go-director/internal/provider"
)

type Config struct {
	Model     *ModelConfig
	Director  *DirectorConfig
	Tools     *ToolsConfig
	Captions  *CaptionsConfig
	Telemetry *TelemetryConfig
}

type ModelConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	NumCtx      int
	Temperature *float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

type DirectorConfig struct {
	Prompt          string
	MaxToolRounds   int
	ToolConcurrency int
	TokenBudget     int
	Session         string
	Debug           bool
	Verbose         bool
}

type ToolsConfig struct {
	CameraURL string
	SearchURL string
	MaxRunes  int
}

type CaptionsConfig struct {
	Skip   int
	Group  int
	Prefix string
	Pace   bool
	Speed  float64
}

type TelemetryConfig struct {
	Observe      bool
	ArtifactsDir string
}

// YamlSource implements cli.ValueSource for a map loaded from YAML.
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	if v, ok := y.data[y.key]; ok && v != nil {
		if slice, ok := v.([]any); ok {
			strs := make([]string, 0, len(slice))
			for _, item := range slice {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ","), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func (y *YamlSource) String() string   { return "yaml" }
func (y *YamlSource) GoString() string { return "yaml" }

// Flags returns the flag set, reading YAML from the file named by
// DIRECTOR_CONFIG or --config on the command line.
func Flags() []cli.Flag {
	return FlagsFrom(getConfigPath(os.Args))
}

// FlagsFrom returns the flag set with YAML values from path. Precedence is
// command line, then environment, then YAML, then defaults.
func FlagsFrom(path string) []cli.Flag {
	var configData map[string]any
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &configData); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", path, err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", path, err)
		}
	}

	// EnvVar > YAML > Default
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if configData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: configData, key: key})
		}
		return chain
	}

	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "use the named YAML configuration file", Sources: cli.EnvVars("DIRECTOR_CONFIG")},

		// Model backend
		&cli.StringFlag{Name: "provider", Value: DefaultProvider, Usage: "model backend: ollama, anthropic or openai", Sources: src("provider", "DIRECTOR_PROVIDER")},
		&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model name (backend default when empty)", Sources: src("model", "DIRECTOR_MODEL")},
		&cli.StringFlag{Name: "baseurl", Usage: "backend base URL (backend default when empty)", Sources: src("baseurl", "DIRECTOR_BASEURL")},
		&cli.StringFlag{Name: "apikey", Usage: "backend API key", Sources: src("apikey", "DIRECTOR_APIKEY")},
		&cli.IntFlag{Name: "numctx", Value: DefaultNumCtx, Usage: "context window size requested from the backend", Sources: src("numctx", "DIRECTOR_NUMCTX")},
		&cli.FloatFlag{Name: "temperature", Usage: "sampling temperature (backend default when unset)", Sources: src("temperature", "DIRECTOR_TEMPERATURE")},
		&cli.IntFlag{Name: "maxtokens", Usage: "maximum tokens to generate per turn (backend default when 0)", Sources: src("maxtokens", "DIRECTOR_MAXTOKENS")},
		&cli.IntFlag{Name: "maxretries", Value: DefaultMaxRetries, Usage: "SDK retries for transient anthropic/openai failures (0 disables)", Sources: src("maxretries", "DIRECTOR_MAXRETRIES")},
		&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Value: DefaultTimeout, Usage: "timeout for each chat turn", Sources: src("timeout", "DIRECTOR_TIMEOUT")},

		// Director
		&cli.StringFlag{Name: "prompt", Value: DefaultPrompt, Usage: "system prompt", Sources: src("prompt", "DIRECTOR_PROMPT")},
		&cli.IntFlag{Name: "maxtoolrounds", Value: DefaultMaxToolRounds, Usage: "maximum tool dispatch rounds per turn", Sources: src("maxtoolrounds", "DIRECTOR_MAXTOOLROUNDS")},
		&cli.IntFlag{Name: "toolconcurrency", Usage: "tool calls run at once per turn (0 = unlimited, 1 = sequential)", Sources: src("toolconcurrency", "DIRECTOR_TOOLCONCURRENCY")},
		&cli.IntFlag{Name: "tokenbudget", Usage: "estimated input token budget per request (0 = send full history)", Sources: src("tokenbudget", "DIRECTOR_TOKENBUDGET")},
		&cli.StringFlag{Name: "session", Usage: "JSON file the conversation is loaded from and saved to", Sources: src("session", "DIRECTOR_SESSION")},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "trace requests, responses and tool dispatch", Sources: src("debug", "DIRECTOR_DEBUG")},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable verbose logging", Sources: src("verbose", "DIRECTOR_VERBOSE")},

		// Tools
		&cli.StringFlag{Name: "cameraurl", Usage: "POST camera switches to this endpoint (log only when empty)", Sources: src("cameraurl", "DIRECTOR_CAMERAURL")},
		&cli.StringFlag{Name: "searchurl", Usage: "DuckDuckGo HTML endpoint", Sources: src("searchurl", "DIRECTOR_SEARCHURL")},
		&cli.IntFlag{Name: "maxrunes", Value: DefaultMaxRunes, Usage: "maximum runes returned by the scraper", Sources: src("maxrunes", "DIRECTOR_MAXRUNES")},

		// Captions
		&cli.IntFlag{Name: "skip", Value: DefaultCaptionSkip, Usage: "caption cues to skip before feeding", Sources: src("skip", "DIRECTOR_SKIP")},
		&cli.IntFlag{Name: "group", Value: DefaultCaptionGroup, Usage: "caption cues per turn", Sources: src("group", "DIRECTOR_GROUP")},
		&cli.StringFlag{Name: "prefix", Value: DefaultCaptionPrefix, Usage: "text placed before each caption batch", Sources: src("prefix", "DIRECTOR_PREFIX")},
		&cli.BoolFlag{Name: "pace", Usage: "feed captions in real time by cue start", Sources: src("pace", "DIRECTOR_PACE")},
		&cli.FloatFlag{Name: "speed", Value: 1, Usage: "playback speed when pacing", Sources: src("speed", "DIRECTOR_SPEED")},

		// Telemetry
		&cli.BoolFlag{Name: "observe", Usage: "write JSONL events", Sources: src("observe", "DIRECTOR_OBSERVE_JSON")},
		&cli.StringFlag{Name: "artifacts", Value: DefaultArtifactsDir, Usage: "directory for events.jsonl", Sources: src("artifacts", "DIRECTOR_ARTIFACTS_DIR")},
	}
}

func getConfigPath(args []string) string {
	if v := os.Getenv("DIRECTOR_CONFIG"); v != "" {
		return v
	}
	for i, arg := range args {
		if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				return args[i+1]
			}
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
	}
	return ""
}

// FromCommand builds a Config from parsed flags.
func FromCommand(c *cli.Command) *Config {
	if c.IsSet("config") {
		zap.L().Info("using config file", zap.String("path", c.String("config")))
	}

	var temperature *float64
	if c.IsSet("temperature") {
		t := c.Float("temperature")
		temperature = &t
	}

	return &Config{
		Model: &ModelConfig{
			Provider:    strings.ToLower(strings.TrimSpace(c.String("provider"))),
			Model:       c.String("model"),
			BaseURL:     c.String("baseurl"),
			APIKey:      c.String("apikey"),
			NumCtx:      c.Int("numctx"),
			Temperature: temperature,
			MaxTokens:   c.Int("maxtokens"),
			MaxRetries:  c.Int("maxretries"),
			Timeout:     c.Duration("timeout"),
		},
		Director: &DirectorConfig{
			Prompt:          c.String("prompt"),
			MaxToolRounds:   c.Int("maxtoolrounds"),
			ToolConcurrency: c.Int("toolconcurrency"),
			TokenBudget:     c.Int("tokenbudget"),
			Session:         c.String("session"),
			Debug:           c.Bool("debug"),
			Verbose:         c.Bool("verbose"),
		},
		Tools: &ToolsConfig{
			CameraURL: c.String("cameraurl"),
			SearchURL: c.String("searchurl"),
			MaxRunes:  c.Int("maxrunes"),
		},
		Captions: &CaptionsConfig{
			Skip:   c.Int("skip"),
			Group:  c.Int("group"),
			Prefix: c.String("prefix"),
			Pace:   c.Bool("pace"),
			Speed:  c.Float("speed"),
		},
		Telemetry: &TelemetryConfig{
			Observe:      c.Bool("observe"),
			ArtifactsDir: c.String("artifacts"),
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Model.Provider {
	case provider.Ollama, provider.OpenAI:
	case provider.Anthropic:
		if c.Model.APIKey == "" {
			errs = append(errs, errors.New("anthropic requires an API key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Model.Provider))
	}
	if t := c.Model.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0, 2]", *t))
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"numctx", c.Model.NumCtx},
		{"maxtokens", c.Model.MaxTokens},
		{"maxretries", c.Model.MaxRetries},
		{"toolconcurrency", c.Director.ToolConcurrency},
		{"tokenbudget", c.Director.TokenBudget},
		{"maxrunes", c.Tools.MaxRunes},
		{"skip", c.Captions.Skip},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", f.name))
		}
	}
	if c.Director.MaxToolRounds < 1 {
		errs = append(errs, errors.New("maxtoolrounds must be at least 1"))
	}
	if c.Captions.Group < 1 {
		errs = append(errs, errors.New("group must be at least 1"))
	}
	if c.Captions.Speed <= 0 {
		errs = append(errs, errors.New("speed must be positive"))
	}
	if c.Model.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ProviderConfig is the backend configuration for provider.New.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Name:       c.Model.Provider,
		Model:      c.Model.Model,
		BaseURL:    c.Model.BaseURL,
		APIKey:     c.Model.APIKey,
		MaxRetries: c.Model.MaxRetries,
	}
}

// GenerationOptions are the options sent with every request.
func (c *Config) GenerationOptions() provider.Options {
	return provider.Options{
		NumCtx:      c.Model.NumCtx,
		Temperature: c.Model.Temperature,
		MaxTokens:   c.Model.MaxTokens,
	}
}

// Log writes the effective configuration at debug level with secrets masked.
func (c *Config) Log(l *zap.Logger) {
	l.Debug("configuration",
		zap.String("provider", c.Model.Provider),
		zap.String("model", c.Model.Model),
		zap.String("baseurl", c.Model.BaseURL),
		zap.String("apikey", mask(c.Model.APIKey)),
		zap.Int("numctx", c.Model.NumCtx),
		zap.Int("maxtokens", c.Model.MaxTokens),
		zap.Duration("timeout", c.Model.Timeout),
		zap.Int("maxtoolrounds", c.Director.MaxToolRounds),
		zap.Int("toolconcurrency", c.Director.ToolConcurrency),
		zap.Int("tokenbudget", c.Director.TokenBudget),
		zap.String("session", c.Director.Session),
		zap.Bool("debug", c.Director.Debug),
		zap.String("cameraurl", c.Tools.CameraURL),
		zap.Int("skip", c.Captions.Skip),
		zap.Int("group", c.Captions.Group),
		zap.Bool("pace", c.Captions.Pace),
		zap.Bool("observe", c.Telemetry.Observe),
		zap.String("artifacts", c.Telemetry.ArtifactsDir),
	)
}

func mask(secret string) string {
	if len(secret) <= 3 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-3) + secret[len(secret)-3:]
}
