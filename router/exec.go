package router

import (
	"context"
	"fmt"

	"github.com/critiq-ai/critiq/session"
)

// execute runs the chosen invocations sequentially off a work list. A
// tool's output may itself carry serialized intent; those follow-ups are
// appended to the list rather than invoked recursively, and the visited
// set stops a tool from re-invoking itself. Every result, success or
// failure, is recorded as a tool message so the model sees it next turn.
func (r *Router) execute(ctx context.Context, sess *session.Session, invocations []Invocation, turn *Turn) {
	worklist := append([]Invocation(nil), invocations...)
	visited := make(map[string]bool)
	steps := 0

	for len(worklist) > 0 && steps < r.maxSteps {
		inv := worklist[0]
		worklist = worklist[1:]
		steps++

		desc, ok := r.registry.Get(inv.Name)
		if !ok {
			// Configuration error: the model named a tool we never
			// registered. Skip it and keep going.
			r.logger.Error("session %s: unknown tool %q selected, skipping", sess.ID, inv.Name)
			continue
		}
		if visited[inv.Name] {
			r.logger.Warn("session %s: tool %q already ran this turn, skipping re-invocation", sess.ID, inv.Name)
			continue
		}
		visited[inv.Name] = true

		result, err := desc.Tool.Call(ctx, inv.Args)
		if err != nil {
			r.logger.Warn("session %s: tool %q failed: %v", sess.ID, inv.Name, err)
			turn.Messages = append(turn.Messages, session.Message{
				Role:     session.RoleTool,
				ToolName: inv.Name,
				Content:  fmt.Sprintf("An error occurred: %v", err),
			})
			continue
		}

		turn.Invoked = append(turn.Invoked, inv.Name)
		turn.Messages = append(turn.Messages, session.Message{
			Role:     session.RoleTool,
			ToolName: inv.Name,
			Content:  result,
		})

		// Follow-up intent embedded in the result joins the work list.
		if followups, ok := ParseIntent(result); ok && len(followups) > 0 {
			worklist = append(worklist, followups...)
		}
	}
}
