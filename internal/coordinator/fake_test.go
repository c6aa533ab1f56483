package coordinator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/petasbytes/go-director/internal/provider"
	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

// step produces one scripted model turn.
type step func(ctx context.Context, history []memory.Message) (provider.Turn, error)

// scripted is a provider.Client that replays steps in order and records what it was sent.
type scripted struct {
	mu    sync.Mutex
	steps []step
	calls int
	seen  [][]memory.Message
	descs [][]tools.Descriptor
	opts  []provider.Options
}

func script(steps ...step) *scripted { return &scripted{steps: steps} }

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Generate(ctx context.Context, history []memory.Message, descs []tools.Descriptor, opts provider.Options) (provider.Turn, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.seen = append(s.seen, history)
	s.descs = append(s.descs, descs)
	s.opts = append(s.opts, opts)
	s.mu.Unlock()
	if i >= len(s.steps) {
		return provider.Turn{}, fmt.Errorf("scripted: unexpected call %d", i+1)
	}
	return s.steps[i](ctx, history)
}

func (s *scripted) requests() [][]memory.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen
}

func answer(text string) step {
	return func(context.Context, []memory.Message) (provider.Turn, error) {
		return provider.Turn{Content: text}, nil
	}
}

func request(calls ...memory.ToolCall) step {
	return func(context.Context, []memory.Message) (provider.Turn, error) {
		return provider.Turn{ToolCalls: calls}, nil
	}
}

func fail(err error) step {
	return func(context.Context, []memory.Message) (provider.Turn, error) {
		return provider.Turn{}, err
	}
}

// blockUntilDone waits for cancellation like a real HTTP backend would.
func blockUntilDone(ctx context.Context, _ []memory.Message) (provider.Turn, error) {
	<-ctx.Done()
	return provider.Turn{}, ctx.Err()
}

func call(id, name, args string) memory.ToolCall {
	return memory.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

type SleepInput struct {
	Label string `json:"label"`
	MS    int    `json:"ms"`
}

// completions records the order tools finish in.
type completions struct {
	mu    sync.Mutex
	order []string
}

func (c *completions) add(label string) {
	c.mu.Lock()
	c.order = append(c.order, label)
	c.mu.Unlock()
}

func (c *completions) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func sleepTool(done *completions) tools.ToolDefinition {
	return tools.NewTool("sleep", "Sleeps then echoes the label.", func(ctx context.Context, in SleepInput) (string, error) {
		select {
		case <-time.After(time.Duration(in.MS) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		done.add(in.Label)
		return in.Label, nil
	})
}

type EmptyInput struct{}

// blockingTool signals started and then waits for cancellation.
func blockingTool(started chan<- struct{}) tools.ToolDefinition {
	return tools.NewTool("block", "Blocks until cancelled.", func(ctx context.Context, _ EmptyInput) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	})
}
