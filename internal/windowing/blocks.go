package windowing

import (
	"go.uber.org/zap"

	"github.com/petasbytes/go-director/memory"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupToolExchange
)

// Group describes a contiguous span of messages [Start, End) in the input slice.
type Group struct {
	Kind  GroupKind
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupMessages groups messages into atomic units that preserve tool exchanges.
// Invariants:
//   - An exchange is an assistant message with tool calls followed immediately
//     by one tool message per call.
//   - The tool messages must answer exactly the assistant's call ids: none
//     missing, none extra. Error results count the same as successes.
//   - Anything else falls back to singletons.
func GroupMessages(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if msgs[i].HasToolCalls() {
			end, reason := exchangeEnd(msgs, i)
			if reason == "" {
				groups = append(groups, Group{Kind: GroupToolExchange, Start: i, End: end})
				i = end
				continue
			}
			logger().Debug("exclude exchange", zap.String("reason", reason), zap.Int("idx", i))
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// exchangeEnd returns the exclusive end of the exchange starting at i, or a
// reason code when the span is not a complete exchange.
func exchangeEnd(msgs []memory.Message, i int) (int, string) {
	want := make(map[string]struct{}, len(msgs[i].ToolCalls))
	for _, c := range msgs[i].ToolCalls {
		want[c.ID] = struct{}{}
	}
	got := make(map[string]struct{}, len(want))
	j := i + 1
	for ; j < len(msgs) && msgs[j].Role == memory.RoleTool; j++ {
		id := msgs[j].ToolCallID
		if _, ok := want[id]; !ok {
			return 0, "extra_results"
		}
		if _, dup := got[id]; dup {
			return 0, "duplicate_results"
		}
		got[id] = struct{}{}
	}
	switch {
	case j == i+1:
		return 0, "not_followed_by_results"
	case len(got) != len(want):
		return 0, "missing_results"
	}
	return j, ""
}

// pinnedPrefix returns the number of leading system messages.
func pinnedPrefix(msgs []memory.Message) int {
	n := 0
	for n < len(msgs) && msgs[n].Role == memory.RoleSystem {
		n++
	}
	return n
}

func logger() *zap.Logger { return zap.L().Named("windowing") }
