package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/petasbytes/go-director/internal/config"
	"github.com/petasbytes/go-director/internal/coordinator"
	"github.com/petasbytes/go-director/internal/provider"
	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

// session wires a coordinator to its backend, tools and persisted history.
type session struct {
	cfg   *config.Config
	coord *coordinator.Coordinator
	log   *zap.Logger
	fresh bool
}

func newSession(cfg *config.Config) (*session, error) {
	log := zap.L().Named("director")

	var persisted []memory.Message
	if path := cfg.Director.Session; path != "" {
		msgs, err := memory.LoadConversation(path)
		if err != nil {
			log.Warn("failed to load persisted conversation", zap.String("path", path), zap.Error(err))
		}
		persisted = msgs
	}

	client, err := provider.New(cfg.ProviderConfig())
	if err != nil {
		return nil, err
	}

	reg, err := tools.DefaultRegistry(builtinOptions(cfg))
	if err != nil {
		return nil, err
	}

	coord := coordinator.New(client, reg,
		coordinator.WithHistory(memory.NewHistory(persisted...)),
		coordinator.WithOptions(cfg.GenerationOptions()),
		coordinator.WithMaxToolRounds(cfg.Director.MaxToolRounds),
		coordinator.WithToolConcurrency(cfg.Director.ToolConcurrency),
		coordinator.WithTokenBudget(cfg.Director.TokenBudget),
		coordinator.WithDebug(cfg.Director.Debug),
		coordinator.WithLogger(zap.L()),
	)
	log.Info("session ready",
		zap.String("provider", client.Name()),
		zap.Strings("tools", reg.Names()),
		zap.Int("history", len(persisted)),
	)
	return &session{cfg: cfg, coord: coord, log: log, fresh: len(persisted) == 0}, nil
}

func builtinOptions(cfg *config.Config) tools.BuiltinOptions {
	opts := tools.BuiltinOptions{SearchURL: cfg.Tools.SearchURL, MaxRunes: cfg.Tools.MaxRunes}
	if cfg.Tools.CameraURL != "" {
		opts.Switcher = &tools.HTTPSwitcher{Endpoint: cfg.Tools.CameraURL, Client: &http.Client{Timeout: 10 * time.Second}}
	}
	return opts
}

// start sends the persona as the opening turn of a new conversation.
func (s *session) start(ctx context.Context) error {
	if !s.fresh || s.cfg.Director.Prompt == "" {
		return nil
	}
	reply, err := s.turn(ctx, memory.NewSystemMessage(s.cfg.Director.Prompt))
	if err != nil {
		return err
	}
	printReply(reply)
	return nil
}

// turn runs one Chat call under the configured timeout and persists the result.
func (s *session) turn(ctx context.Context, msgs ...memory.Message) (memory.Message, error) {
	if s.cfg.Model.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Model.Timeout)
		defer cancel()
	}
	reply, err := s.coord.Chat(ctx, msgs...)
	s.save()
	return reply, err
}

func (s *session) save() {
	path := s.cfg.Director.Session
	if path == "" {
		return
	}
	if err := memory.SaveConversation(path, s.coord.History()); err != nil {
		s.log.Warn("failed to save conversation", zap.String("path", path), zap.Error(err))
	}
}

func printReply(m memory.Message) {
	fmt.Fprintf(os.Stdout, "\u001b[93mDirector\u001b[0m: %s\n", m.Content)
}
