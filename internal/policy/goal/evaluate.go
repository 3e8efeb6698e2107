package goal

import (
	"strings"

	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
)

// Evaluate walks a priority-ordered goal list and returns exactly one
// action.
//
// Satisfied goals are skipped. The first unsatisfied goal is entered and
// its precondition list descended depth-first, always into the first
// unsatisfied precondition, until the deepest unsatisfied leaf is found;
// that leaf executes. A Skip result moves evaluation on to the next
// top-level goal rather than stopping, so a goal blocked on a shared
// resource defers without starving lower priorities. When every goal is
// satisfied the agent explores instead of idling.
func Evaluate(goals []Goal, ctx *Context) protocol.Action {
	for _, g := range goals {
		if g.Satisfied(ctx) {
			ctx.Rec.Skip(g.Name(), "satisfied")
			continue
		}

		chain := []string{g.Name()}
		leaf := deepestUnsatisfied(g, ctx, &chain)
		action, ok := leaf.Execute(ctx)
		if !ok {
			ctx.Rec.Skip(leaf.Name(), "deferred")
			continue
		}

		if ctx.Rec != nil {
			ctx.Rec.GoalChain = strings.Join(chain, ">")
			ctx.Rec.Action = string(action)
		}
		return action
	}

	if ctx.Rec != nil {
		ctx.Rec.GoalChain = "AllGoalsSatisfied"
	}
	return ctx.Explore()
}

func deepestUnsatisfied(g Goal, ctx *Context, chain *[]string) Goal {
	for _, pre := range g.Preconditions() {
		if !pre.Satisfied(ctx) {
			*chain = append(*chain, pre.Name())
			return deepestUnsatisfied(pre, ctx, chain)
		}
	}
	return g
}
