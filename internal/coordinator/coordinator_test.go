package coordinator_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/petasbytes/go-director/internal/coordinator"
	"github.com/petasbytes/go-director/internal/provider"
	"github.com/petasbytes/go-director/memory"
	"github.com/petasbytes/go-director/tools"
)

func newRegistry(t *testing.T, defs ...tools.ToolDefinition) *tools.Registry {
	t.Helper()
	reg, err := tools.NewRegistry(defs...)
	require.NoError(t, err)
	return reg
}

func roles(msgs []memory.Message) []memory.Role {
	out := make([]memory.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func decodeToolError(t *testing.T, content string) tools.ToolError {
	t.Helper()
	var te tools.ToolError
	require.NoError(t, json.Unmarshal([]byte(content), &te))
	return te
}

func TestChat_PlainAnswer_GrowsHistoryByTwo(t *testing.T) {
	client := script(answer("Good morning."), answer("Still here."))
	c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition),
		coordinator.WithHistory(memory.NewHistory(memory.NewSystemMessage("You are a director."))))

	reply, err := c.Chat(context.Background(), memory.NewUserMessage("hello"))
	require.NoError(t, err)
	assert.Equal(t, memory.NewAssistantMessage("Good morning."), reply)
	assert.Len(t, c.History(), 3)

	_, err = c.Chat(context.Background(), memory.NewUserMessage("again"))
	require.NoError(t, err)
	assert.Equal(t,
		[]memory.Role{memory.RoleSystem, memory.RoleUser, memory.RoleAssistant, memory.RoleUser, memory.RoleAssistant},
		roles(c.History()))
	assert.Equal(t, coordinator.AwaitingUserInput, c.State())
}

func TestChat_SystemOnlyBatch(t *testing.T) {
	client := script(answer("Ready."))
	c := coordinator.New(client, newRegistry(t))

	reply, err := c.Chat(context.Background(), memory.NewSystemMessage("persona"))
	require.NoError(t, err)
	assert.Equal(t, "Ready.", reply.Content)
	assert.Equal(t, []memory.Role{memory.RoleSystem, memory.RoleAssistant}, roles(c.History()))
}

func TestChat_CalculatorScenario(t *testing.T) {
	client := script(
		request(call("c1", "calculator", `{"expression":"2+2"}`)),
		func(_ context.Context, h []memory.Message) (provider.Turn, error) {
			last := h[len(h)-1]
			if last.Role != memory.RoleTool || last.Content != "4" {
				return provider.Turn{}, errors.New("tool result not visible to model")
			}
			return provider.Turn{Content: "2 + 2 = 4"}, nil
		},
	)
	c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition))

	reply, err := c.Chat(context.Background(), memory.NewUserMessage("What is 2+2?"))
	require.NoError(t, err)
	assert.Equal(t, "2 + 2 = 4", reply.Content)

	h := c.History()
	require.Len(t, h, 4)
	assert.Equal(t, []memory.Role{memory.RoleUser, memory.RoleAssistant, memory.RoleTool, memory.RoleAssistant}, roles(h))
	require.Len(t, h[1].ToolCalls, 1)
	assert.Equal(t, "c1", h[1].ToolCalls[0].ID)
	assert.Equal(t, "c1", h[2].ToolCallID)
	assert.Equal(t, "calculator", h[2].ToolName)
	assert.False(t, h[2].IsError)
}

func TestChat_UnknownTool_ReportedToModel(t *testing.T) {
	client := script(
		request(call("w1", "weather", `{"city":"Paris"}`)),
		answer("I cannot check the weather."),
	)
	c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition))

	reply, err := c.Chat(context.Background(), memory.NewUserMessage("Weather in Paris?"))
	require.NoError(t, err)
	assert.Equal(t, "I cannot check the weather.", reply.Content)

	h := c.History()
	require.Len(t, h, 4)
	assert.True(t, h[2].IsError)
	assert.Equal(t, "w1", h[2].ToolCallID)
	te := decodeToolError(t, h[2].Content)
	assert.Equal(t, tools.CodeUnknownTool, te.Code)
	assert.Equal(t, "weather", te.Tool)
}

func TestChat_InvalidParams_ReportedToModel(t *testing.T) {
	client := script(
		request(call("c1", "calculator", `{"expression":5}`)),
		answer("Sorry."),
	)
	c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("compute"))
	require.NoError(t, err)
	h := c.History()
	require.Len(t, h, 4)
	assert.Equal(t, tools.CodeInvalidParams, decodeToolError(t, h[2].Content).Code)
}

func TestChat_TransportErrorOnFirstCall_LeavesOnlyUserMessage(t *testing.T) {
	modelErr := &provider.ModelError{Kind: provider.KindTransport, Provider: "scripted", Err: errors.New("connection refused")}
	c := coordinator.New(script(fail(modelErr)), newRegistry(t))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, coordinator.ErrModel)
	assert.ErrorIs(t, err, provider.ErrTransport)
	assert.NotErrorIs(t, err, coordinator.ErrCancelled)

	var ce *coordinator.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, coordinator.KindModel, ce.Kind)
	assert.Equal(t, []memory.Message{memory.NewUserMessage("hello")}, c.History())
	assert.Equal(t, coordinator.AwaitingUserInput, c.State())
}

func TestChat_ModelErrorAfterToolRound_KeepsExchange(t *testing.T) {
	client := script(
		request(call("c1", "calculator", `{"expression":"1+1"}`)),
		fail(&provider.ModelError{Kind: provider.KindProtocol, Provider: "scripted", StatusCode: 400, Err: errors.New("bad request")}),
	)
	c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("compute"))
	assert.ErrorIs(t, err, provider.ErrProtocol)
	var ce *coordinator.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Rounds)
	assert.Equal(t, []memory.Role{memory.RoleUser, memory.RoleAssistant, memory.RoleTool}, roles(c.History()))
}

func TestChat_ToolLoopExceeded(t *testing.T) {
	loop := request(call("", "calculator", `{"expression":"1"}`))
	client := script(loop, loop, loop)
	c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition), coordinator.WithMaxToolRounds(2))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("loop"))
	require.ErrorIs(t, err, coordinator.ErrToolLoopExceeded)

	var ce *coordinator.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Rounds)

	// Partial transcript: two complete exchanges, no dangling request.
	h := c.History()
	assert.Equal(t, []memory.Role{
		memory.RoleUser,
		memory.RoleAssistant, memory.RoleTool,
		memory.RoleAssistant, memory.RoleTool,
	}, roles(h))
	assert.Equal(t, 3, len(client.requests()))
}

func TestChat_DefaultMaxToolRounds(t *testing.T) {
	loop := request(call("x", "calculator", `{"expression":"1"}`))
	steps := make([]step, coordinator.DefaultMaxToolRounds+1)
	for i := range steps {
		steps[i] = loop
	}
	c := coordinator.New(script(steps...), newRegistry(t, tools.CalculatorDefinition))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("loop"))
	require.ErrorIs(t, err, coordinator.ErrToolLoopExceeded)
	assert.Len(t, c.History(), 1+2*coordinator.DefaultMaxToolRounds)
}

func TestChat_ToolResultsFollowRequestOrder(t *testing.T) {
	done := &completions{}
	client := script(
		request(
			call("a", "sleep", `{"label":"A","ms":150}`),
			call("b", "sleep", `{"label":"B","ms":0}`),
			call("c", "sleep", `{"label":"C","ms":50}`),
		),
		answer("all done"),
	)
	c := coordinator.New(client, newRegistry(t, sleepTool(done)))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("go"))
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C", "A"}, done.get(), "tools should run concurrently")

	h := c.History()
	require.Len(t, h, 6)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, h[2+i].ToolCallID)
		assert.Equal(t, []string{"A", "B", "C"}[i], h[2+i].Content)
	}
}

func TestChat_SequentialToolConcurrency(t *testing.T) {
	done := &completions{}
	client := script(
		request(
			call("a", "sleep", `{"label":"A","ms":30}`),
			call("b", "sleep", `{"label":"B","ms":0}`),
		),
		answer("ok"),
	)
	c := coordinator.New(client, newRegistry(t, sleepTool(done)), coordinator.WithToolConcurrency(1))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("go"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, done.get())
}

func TestChat_NormalizesCallIDsAndArguments(t *testing.T) {
	client := script(
		request(
			call("", "calculator", `{"expression":"1+1"}`),
			call("dup", "calculator", `{"expression":"2+2"}`),
			call("dup", "calculator", ``),
		),
		answer("ok"),
	)
	c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("go"))
	require.NoError(t, err)

	h := c.History()
	require.Len(t, h, 6)
	calls := h[1].ToolCalls
	seen := map[string]bool{}
	for i, tc := range calls {
		require.NotEmpty(t, tc.ID)
		assert.False(t, seen[tc.ID], "duplicate id %q", tc.ID)
		seen[tc.ID] = true
		assert.Equal(t, tc.ID, h[2+i].ToolCallID)
	}
	assert.Equal(t, "dup", calls[1].ID)
	assert.JSONEq(t, `{}`, string(calls[2].Arguments))
	// The empty-argument call is still dispatched and rejected by validation.
	assert.True(t, h[4].IsError)
}

func TestChat_CancelledDuringDispatch_LeavesHistoryBeforeStage(t *testing.T) {
	started := make(chan struct{}, 1)
	client := script(request(call("b1", "block", `{}`)))
	c := coordinator.New(client, newRegistry(t, blockingTool(started)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Chat(ctx, memory.NewUserMessage("wait"))
	require.ErrorIs(t, err, coordinator.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []memory.Message{memory.NewUserMessage("wait")}, c.History())
	assert.Equal(t, coordinator.AwaitingUserInput, c.State())
}

func TestChat_CancelledDuringGenerate(t *testing.T) {
	c := coordinator.New(script(blockUntilDone), newRegistry(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, memory.NewUserMessage("slow"))
	require.ErrorIs(t, err, coordinator.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, coordinator.ErrModel)
	assert.Len(t, c.History(), 1)
}

func TestChat_AlreadyCancelled_AppendsNothing(t *testing.T) {
	client := script(answer("unused"))
	c := coordinator.New(client, newRegistry(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Chat(ctx, memory.NewUserMessage("hello"))
	require.ErrorIs(t, err, coordinator.ErrCancelled)
	assert.Empty(t, c.History())
	assert.Empty(t, client.requests())
}

func TestChat_NoMessages(t *testing.T) {
	c := coordinator.New(script(), newRegistry(t))
	_, err := c.Chat(context.Background())
	assert.ErrorIs(t, err, coordinator.ErrNoMessages)
}

func TestChat_PassesDescriptorsAndOptionsEveryTurn(t *testing.T) {
	temp := 0.2
	opts := provider.Options{NumCtx: 16384, Temperature: &temp, Extra: map[string]any{"seed": 7}}
	reg := newRegistry(t, tools.CalculatorDefinition, tools.CameraTool(&tools.LogSwitcher{}))
	client := script(request(call("c1", "calculator", `{"expression":"3*3"}`)), answer("9"))
	c := coordinator.New(client, reg, coordinator.WithOptions(opts))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("3*3?"))
	require.NoError(t, err)

	require.Len(t, client.opts, 2)
	for i := range client.opts {
		assert.Equal(t, opts, client.opts[i])
		assert.Equal(t, reg.Describe(), client.descs[i])
	}
}

func TestChat_SerializesConcurrentCalls(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	slow := func(context.Context, []memory.Message) (provider.Turn, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return provider.Turn{Content: "ok"}, nil
	}
	c := coordinator.New(script(slow, slow, slow, slow), newRegistry(t))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Chat(context.Background(), memory.NewUserMessage("hi"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	h := c.History()
	require.Len(t, h, 8)
	for i := 0; i < len(h); i += 2 {
		assert.Equal(t, memory.RoleUser, h[i].Role)
		assert.Equal(t, memory.RoleAssistant, h[i+1].Role)
	}
}

func TestChat_DebugTracingDoesNotChangeBehavior(t *testing.T) {
	run := func(debug bool, log *zap.Logger) []memory.Message {
		client := script(
			request(call("c1", "calculator", `{"expression":"2+2"}`), call("w1", "weather", `{}`)),
			answer("done"),
		)
		c := coordinator.New(client, newRegistry(t, tools.CalculatorDefinition),
			coordinator.WithDebug(debug), coordinator.WithLogger(log))
		_, err := c.Chat(context.Background(), memory.NewUserMessage("go"))
		require.NoError(t, err)
		return c.History()
	}

	core, logs := observer.New(zapcore.DebugLevel)
	traced := run(true, zap.New(core))
	plain := run(false, zap.NewNop())
	assert.Equal(t, plain, traced)

	for _, msg := range []string{"request", "response", "dispatch", "tool result", "tool failed", "state"} {
		assert.NotZero(t, logs.FilterMessage(msg).Len(), "missing trace %q", msg)
	}
	for _, e := range logs.FilterMessage("request").All() {
		assert.Equal(t, "coordinator", e.LoggerName)
	}
}

func TestChat_DebugOffEmitsNoTraces(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := coordinator.New(script(answer("hi")), newRegistry(t), coordinator.WithLogger(zap.New(core)))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("hello"))
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("request").Len())
	assert.Zero(t, logs.FilterMessage("state").Len())
}

func TestChat_TokenBudgetWindowsRequestNotHistory(t *testing.T) {
	seed := memory.NewHistory(
		memory.NewSystemMessage("persona"),
		memory.NewUserMessage("an old line that no longer fits the budget"),
		memory.NewAssistantMessage("an old reply that no longer fits either"),
	)
	client := script(answer("ok"))
	c := coordinator.New(client, newRegistry(t),
		coordinator.WithHistory(seed), coordinator.WithTokenBudget(30))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("new line"))
	require.NoError(t, err)

	sent := client.requests()[0]
	assert.Equal(t, []memory.Message{memory.NewSystemMessage("persona"), memory.NewUserMessage("new line")}, sent)
	assert.Len(t, c.History(), 5)
}

func TestChat_TokenBudgetTooSmall_SendsNewestGroup(t *testing.T) {
	client := script(answer("ok"))
	c := coordinator.New(client, newRegistry(t), coordinator.WithTokenBudget(1))

	_, err := c.Chat(context.Background(), memory.NewUserMessage("a line longer than the budget"))
	require.NoError(t, err)
	assert.Equal(t, []memory.Message{memory.NewUserMessage("a line longer than the budget")}, client.requests()[0])
}

func TestError_Messages(t *testing.T) {
	err := &coordinator.Error{Kind: coordinator.KindToolLoopExceeded, Rounds: 8}
	assert.Equal(t, "coordinator: tool_loop_exceeded after 8 tool rounds", err.Error())
	assert.Nil(t, errors.Unwrap(err))

	wrapped := &coordinator.Error{Kind: coordinator.KindModel, Err: errors.New("boom")}
	assert.Equal(t, "coordinator: model after 0 tool rounds: boom", wrapped.Error())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting_user_input", coordinator.AwaitingUserInput.String())
	assert.Equal(t, "request_sent", coordinator.RequestSent.String())
	assert.Equal(t, "tool_dispatch", coordinator.ToolDispatch.String())
	assert.Equal(t, "completed", coordinator.Completed.String())
}
