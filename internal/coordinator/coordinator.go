package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petasbytes/go-director/internal/metrics"
	"github.com/petasbytes/go-director/internal/provider"
	"github.com/petasbytes/go-director/internal/telemetry"
	"github.com/petasbytes/go-director/internal/windowing"
	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

// DefaultMaxToolRounds bounds tool dispatch rounds per Chat call.
const DefaultMaxToolRounds = 8

// Invoker is the tool surface the coordinator needs. *tools.Registry implements it.
type Invoker interface {
	Describe() []tools.Descriptor
	Invoke(ctx context.Context, name string, params json.RawMessage) (string, error)
}

// Coordinator owns one conversation. Chat calls are serialized.
type Coordinator struct {
	client  provider.Client
	tools   Invoker
	history *memory.History
	opts    provider.Options

	maxRounds   int
	concurrency int
	debug       bool
	log         *zap.Logger

	budget  int
	counter windowing.TokenCounter

	mu    sync.Mutex
	state atomic.Int32
}

type Option func(*Coordinator)

// WithHistory continues an existing conversation.
func WithHistory(h *memory.History) Option {
	return func(c *Coordinator) {
		if h != nil {
			c.history = h
		}
	}
}

// WithOptions sets the generation options sent on every request.
func WithOptions(o provider.Options) Option {
	return func(c *Coordinator) { c.opts = o }
}

// WithMaxToolRounds caps dispatch rounds per Chat call. Values < 1 keep the default.
func WithMaxToolRounds(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithToolConcurrency limits how many tool calls of one turn run at once.
// 1 runs them sequentially; values < 1 mean no limit.
func WithToolConcurrency(n int) Option {
	return func(c *Coordinator) { c.concurrency = n }
}

// WithDebug traces requests, responses, dispatches and state transitions at debug level.
func WithDebug(on bool) Option {
	return func(c *Coordinator) { c.debug = on }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTokenBudget sends only the newest whole message groups that fit
// budget estimated tokens. History is never trimmed. 0 sends everything.
func WithTokenBudget(budget int) Option {
	return func(c *Coordinator) { c.budget = budget }
}

// WithCounter replaces the heuristic token counter used by WithTokenBudget.
func WithCounter(tc windowing.TokenCounter) Option {
	return func(c *Coordinator) {
		if tc != nil {
			c.counter = tc
		}
	}
}

func New(client provider.Client, inv Invoker, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:    client,
		tools:     inv,
		history:   memory.NewHistory(),
		maxRounds: DefaultMaxToolRounds,
		log:       zap.NewNop(),
		counter:   windowing.HeuristicCounter{},
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("coordinator")
	return c
}

// State reports where the coordinator is in the loop.
func (c *Coordinator) State() State { return State(c.state.Load()) }

// History returns a snapshot of the conversation.
func (c *Coordinator) History() []memory.Message { return c.history.Messages() }

// Chat appends msgs to history and runs the generate/dispatch loop until the
// model answers without tool calls. The answer is appended and returned.
//
// Tool failures are reported to the model as tool messages and never fail
// the call. Model failures abort with KindModel; history keeps everything
// appended so far. Exceeding the round cap aborts with KindToolLoopExceeded,
// leaving history at the last complete tool exchange. A done ctx aborts with
// KindCancelled before the interrupted stage appends anything.
func (c *Coordinator) Chat(ctx context.Context, msgs ...memory.Message) (memory.Message, error) {
	if len(msgs) == 0 {
		return memory.Message{}, ErrNoMessages
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.setState(AwaitingUserInput)

	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := c.log.With(zap.String("turn_id", turnID))

	if err := ctx.Err(); err != nil {
		return memory.Message{}, &Error{Kind: KindCancelled, Err: err}
	}
	c.history.Append(msgs...)
	for _, m := range msgs {
		if m.Role == memory.RoleUser {
			telemetry.EmitInputFeatures(ctx, m.Content)
		}
	}

	start := time.Now()
	rounds := 0
	for {
		c.setState(RequestSent)
		turn, err := c.generate(ctx, log, rounds)
		if err != nil {
			return memory.Message{}, generateError(ctx, rounds, err)
		}

		if turn.Final() {
			reply := memory.NewAssistantMessage(turn.Content)
			c.history.Append(reply)
			c.setState(Completed)
			c.completed(ctx, rounds, start)
			return reply, nil
		}

		if rounds >= c.maxRounds {
			log.Warn("tool loop exceeded", zap.Int("rounds", rounds), zap.Int("requested_calls", len(turn.ToolCalls)))
			return memory.Message{}, &Error{Kind: KindToolLoopExceeded, Rounds: rounds}
		}

		c.setState(ToolDispatch)
		request := memory.NewToolCallMessage(turn.Content, normalizeCalls(turn.ToolCalls))
		results, err := c.dispatch(ctx, log, request.ToolCalls)
		if err != nil {
			return memory.Message{}, &Error{Kind: KindCancelled, Rounds: rounds, Err: err}
		}
		rounds++
		c.history.Append(append([]memory.Message{request}, results...)...)
	}
}

func (c *Coordinator) generate(ctx context.Context, log *zap.Logger, round int) (provider.Turn, error) {
	window := c.window(ctx, log, c.history.Messages())
	descs := c.tools.Describe()
	if c.debug {
		log.Debug("request",
			zap.String("provider", c.client.Name()),
			zap.Int("round", round),
			zap.Int("messages", len(window)),
			zap.Int("tools", len(descs)),
		)
	}

	start := time.Now()
	turn, err := c.client.Generate(ctx, window, descs, c.opts)
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"turn_id":     turnID,
		"provider":    c.client.Name(),
		"round":       round,
		"duration_ms": time.Since(start).Milliseconds(),
		"messages":    len(window),
		"tool_calls":  len(turn.ToolCalls),
		"error":       nil,
	}
	if err != nil {
		fields["error"] = errorKind(err)
		telemetry.Emit("generate", fields)
		log.Debug("generate failed", zap.Int("round", round), zap.Error(err))
		return provider.Turn{}, err
	}
	telemetry.Emit("generate", fields)

	if c.debug {
		log.Debug("response",
			zap.Int("round", round),
			zap.Bool("final", turn.Final()),
			zap.Int("content_runes", metrics.CountFeatures(turn.Content).Runes),
			zap.Strings("tool_calls", callNames(turn.ToolCalls)),
		)
	}
	return turn, nil
}

// window applies the token budget, falling back to the newest group alone
// when even that does not fit.
func (c *Coordinator) window(ctx context.Context, log *zap.Logger, history []memory.Message) []memory.Message {
	if c.budget <= 0 {
		return history
	}
	window, stats := windowing.PrepareSendWindow(history, c.budget, c.counter)
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	telemetry.Emit("window_prepared", map[string]any{
		"turn_id":            turnID,
		"provider":           c.client.Name(),
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"pinned":             stats.Pinned,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	if stats.OverBudgetNewest {
		log.Warn("newest message group exceeds token budget; sending it alone", zap.Int("budget", c.budget))
		return windowing.NewestWindow(history)
	}
	if c.debug {
		log.Debug("window prepared",
			zap.Int("budget", stats.Budget),
			zap.Int("est_total", stats.Total),
			zap.Int("groups_in", stats.IncludedGroups),
			zap.Int("groups_skip", stats.SkippedGroups),
		)
	}
	return window
}

func (c *Coordinator) completed(ctx context.Context, rounds int, start time.Time) {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	f := metrics.CountMessages(c.history.Messages())
	telemetry.Emit("chat_completed", map[string]any{
		"turn_id":      turnID,
		"rounds":       rounds,
		"duration_ms":  time.Since(start).Milliseconds(),
		"history_len":  c.history.Len(),
		"history_size": f,
	})
}

func (c *Coordinator) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if c.debug && prev != s {
		c.log.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// normalizeCalls gives every call a unique id and valid JSON arguments.
func normalizeCalls(calls []memory.ToolCall) []memory.ToolCall {
	out := make([]memory.ToolCall, len(calls))
	seen := make(map[string]struct{}, len(calls))
	for i, call := range calls {
		if _, dup := seen[call.ID]; call.ID == "" || dup {
			call.ID = "call_" + uuid.NewString()
		}
		seen[call.ID] = struct{}{}
		call.Arguments = memory.NormalizeArguments(call.Arguments)
		out[i] = call
	}
	return out
}

func callNames(calls []memory.ToolCall) []string {
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Name
	}
	return names
}
