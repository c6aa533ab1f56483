package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// Camera presets the director can cut to.
const (
	CameraAmbo   = "ambo"
	CameraAltar  = "altar"
	CameraWide   = "wide"
	CameraNarrow = "narrow"
)

// CameraInput selects the shot presented to viewers.
type CameraInput struct {
	Camera string `json:"camera" jsonschema:"enum=ambo,enum=altar,enum=wide,enum=narrow" jsonschema_description:"Enables control of what camera will be presented to viewer. Possible values are: ambo for viewing the reader who would be reading from the podium; altar for viewing the altar; wide for a wide view of the sanctuary; narrow for a narrow view of the stage."`
}

// CameraSwitcher performs the actual cut.
type CameraSwitcher interface {
	Switch(ctx context.Context, camera string) error
}

// LogSwitcher logs cuts and remembers the live camera. It is the default
// when no switching hardware is configured.
type LogSwitcher struct {
	mu      sync.Mutex
	current string
	cuts    int
}

func (s *LogSwitcher) Switch(_ context.Context, camera string) error {
	s.mu.Lock()
	prev := s.current
	s.current = camera
	s.cuts++
	s.mu.Unlock()
	zap.L().Info("camera switch", zap.String("from", prev), zap.String("to", camera))
	return nil
}

// Current returns the live camera, or "" before the first cut.
func (s *LogSwitcher) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Cuts returns how many switches were made.
func (s *LogSwitcher) Cuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cuts
}

// HTTPSwitcher posts {"camera": name} to a switcher bridge endpoint.
type HTTPSwitcher struct {
	Endpoint string
	Client   *http.Client
}

func (s *HTTPSwitcher) Switch(ctx context.Context, camera string) error {
	body, err := json.Marshal(map[string]string{"camera": camera})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("switcher request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("switcher: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("switcher: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	zap.L().Info("camera switch", zap.String("to", camera), zap.String("endpoint", s.Endpoint))
	return nil
}

// CameraTool returns the switch_camera tool bound to sw.
func CameraTool(sw CameraSwitcher) ToolDefinition {
	return NewTool("switch_camera",
		"Switch the live camera shown to viewers of the service broadcast.",
		func(ctx context.Context, in CameraInput) (string, error) {
			switch in.Camera {
			case CameraAmbo, CameraAltar, CameraWide, CameraNarrow:
			default:
				return "", InvalidParams(fmt.Errorf("unknown camera %q", in.Camera))
			}
			if err := sw.Switch(ctx, in.Camera); err != nil {
				return "", err
			}
			return "done", nil
		})
}
