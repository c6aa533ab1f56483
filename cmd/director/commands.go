package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/petasbytes/go-director/internal/captions"
	"github.com/petasbytes/go-director/internal/coordinator"
	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

func runChat(ctx context.Context, c *cli.Command) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	if err := s.start(ctx); err != nil {
		return err
	}

	fmt.Println("Chat with the director (Ctrl-C to quit)")

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(os.Stdin)
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
	}()

	for {
		fmt.Print("\u001b[94mYou\u001b[0m: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Println("\nExiting...")
			return nil
		case line, ok = <-inputCh:
			if !ok {
				return scanner.Err()
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		reply, err := s.turn(ctx, memory.NewUserMessage(line))
		switch {
		case err == nil:
			printReply(reply)
		case ctx.Err() != nil:
			fmt.Println("\nExiting...")
			return nil
		default:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func runCaptions(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return errors.New("captions: expected exactly one FILE argument")
	}
	cfg, err := load(c)
	if err != nil {
		return err
	}
	cues, err := captions.LoadFile(c.Args().First())
	if err != nil {
		return err
	}
	batches := captions.Batches(cues, cfg.Captions.Skip, cfg.Captions.Group)
	zap.L().Info("captions loaded", zap.Int("cues", len(cues)), zap.Int("batches", len(batches)))

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	if err := s.start(ctx); err != nil {
		return err
	}

	var pacer *captions.Pacer
	if cfg.Captions.Pace {
		pacer = captions.NewPacer(cfg.Captions.Speed)
	}
	for _, batch := range batches {
		if pacer != nil {
			if err := pacer.Wait(ctx, batch[0].Start); err != nil {
				return nil
			}
		}
		prompt := captions.Prompt(cfg.Captions.Prefix, batch)
		fmt.Printf("\u001b[94mCaption\u001b[0m: %s\n", prompt)

		reply, err := s.turn(ctx, memory.NewUserMessage(prompt))
		switch {
		case err == nil:
			printReply(reply)
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, coordinator.ErrToolLoopExceeded):
			zap.L().Warn("caption skipped", zap.Int("cue", batch[0].Index), zap.Error(err))
		default:
			return fmt.Errorf("cue %d: %w", batch[0].Index, err)
		}
	}
	return nil
}

type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

func runTools(_ context.Context, c *cli.Command) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	reg, err := tools.DefaultRegistry(builtinOptions(cfg))
	if err != nil {
		return err
	}
	descs := reg.Describe()
	out := make([]toolInfo, len(descs))
	for i, d := range descs {
		out[i] = toolInfo{Name: d.Name, Description: d.Description, Parameters: d.ParametersJSON()}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
