package windowing

import (
	"go.uber.org/zap"

	"github.com/petasbytes/go-director/memory"
)

// Stats summarizes the result of window preparation.
//
// Fields:
//   - Total: estimated tokens for pinned messages and included groups.
//   - Budget: the input token budget used.
//   - Pinned: number of leading system messages always sent.
//   - IncludedGroups: number of groups included.
//   - SkippedGroups: total groups minus IncludedGroups.
//   - OverBudgetNewest: true when the newest single group does not fit next to the pinned prefix.
type Stats struct {
	Total            int
	Budget           int
	Pinned           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the messages (oldest→newest) to send within
// budget using the TokenCounter, without splitting groups.
//
// Rules:
//   - Leading system messages are pinned and counted first.
//   - Include whole groups scanning newest→oldest while total ≤ budget.
//   - If the newest group does not fit, return an empty window and set OverBudgetNewest.
//   - If budget ≤ 0, return an empty window (OverBudgetNewest set when any groups exist).
func PrepareSendWindow(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}

	pinned := pinnedPrefix(msgs)
	rest := msgs[pinned:]
	groups := GroupMessages(rest)

	if budget <= 0 {
		return nil, Stats{Budget: budget, Pinned: pinned, SkippedGroups: len(groups), OverBudgetNewest: len(groups) > 0}
	}

	pinnedCost := 0
	for _, m := range msgs[:pinned] {
		pinnedCost += c.CountMessage(m)
	}

	total := pinnedCost
	included := 0
	startIdx := len(groups)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], rest)
		if included == 0 && total+cost > budget {
			logger().Debug("over budget newest group", zap.Int("budget", budget), zap.Int("cost", cost), zap.Int("pinned_cost", pinnedCost))
			return nil, Stats{Budget: budget, Pinned: pinned, SkippedGroups: len(groups), OverBudgetNewest: true}
		}
		if total+cost > budget {
			break
		}
		total += cost
		included++
		startIdx = gi
	}

	window := make([]memory.Message, 0, pinned+len(rest))
	window = append(window, msgs[:pinned]...)
	if included > 0 {
		window = append(window, rest[groups[startIdx].Start:]...)
	}
	return window, Stats{
		Total:          total,
		Budget:         budget,
		Pinned:         pinned,
		IncludedGroups: included,
		SkippedGroups:  len(groups) - included,
	}
}

// NewestWindow returns the pinned prefix plus the newest group only. It is
// the fallback when even that group exceeds the budget.
func NewestWindow(msgs []memory.Message) []memory.Message {
	pinned := pinnedPrefix(msgs)
	rest := msgs[pinned:]
	groups := GroupMessages(rest)
	window := make([]memory.Message, 0, pinned+2)
	window = append(window, msgs[:pinned]...)
	if len(groups) > 0 {
		window = append(window, rest[groups[len(groups)-1].Start:]...)
	}
	return window
}
