package windowing_test

import (
	"encoding/json"

	"github.com/petasbytes/go-director/internal/windowing"
	"github.com/petasbytes/go-director/memory"
)

// Sys, User and Asst build plain text messages.
func Sys(text string) memory.Message  { return memory.NewSystemMessage(text) }
func User(text string) memory.Message { return memory.NewUserMessage(text) }
func Asst(text string) memory.Message { return memory.NewAssistantMessage(text) }

// Calls builds an assistant tool request with empty arguments ({}).
func Calls(ids ...string) memory.Message {
	calls := make([]memory.ToolCall, len(ids))
	for i, id := range ids {
		calls[i] = memory.ToolCall{ID: id, Name: "t", Arguments: json.RawMessage(`{}`)}
	}
	return memory.NewToolCallMessage("", calls)
}

// Result builds a tool result answering id.
func Result(id, content string) memory.Message {
	return memory.NewToolResultMessage(memory.ToolCall{ID: id, Name: "t"}, content)
}

// ErrResult builds a failed tool result answering id.
func ErrResult(id, content string) memory.Message {
	return memory.NewToolErrorMessage(memory.ToolCall{ID: id, Name: "t"}, content)
}

// groupsEqual is a small utility used by grouping tests.
func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].Kind != want[i].Kind || got[i].Start != want[i].Start || got[i].End != want[i].End {
			return false
		}
	}
	return true
}

func single(start int) windowing.Group {
	return windowing.Group{Kind: windowing.GroupSingleton, Start: start, End: start + 1}
}
