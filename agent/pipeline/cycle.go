package pipeline

import (
	"fmt"

	"github.com/google/uuid"
	contractx "github.com/yugent/yugent/agent/contract"
)

// phase is the cycle's position in the execution state machine:
// idle -> awaiting_llm -> (tool_requested -> awaiting_tool -> awaiting_llm)* -> done | failed.
type phase string

const (
	phaseIdle          phase = "idle"
	phaseAwaitingLLM   phase = "awaiting_llm"
	phaseToolRequested phase = "tool_requested"
	phaseAwaitingTool  phase = "awaiting_tool"
	phaseDone          phase = "done"
	phaseFailed        phase = "failed"
)

var allowedPhaseTransitions = map[phase]map[phase]struct{}{
	phaseIdle: {
		phaseAwaitingLLM: {},
		phaseFailed:      {},
	},
	phaseAwaitingLLM: {
		phaseToolRequested: {},
		phaseDone:          {},
		phaseFailed:        {},
	},
	phaseToolRequested: {
		phaseAwaitingTool: {},
		phaseFailed:       {},
	},
	phaseAwaitingTool: {
		phaseAwaitingLLM: {},
		phaseFailed:      {},
	},
	phaseDone:   {},
	phaseFailed: {},
}

// cycle is the transient bookkeeping for one Execute call. It owns the tool
// iteration counter and the events collected for logger dispatch, and is
// discarded when the call returns.
type cycle struct {
	id         string
	phase      phase
	iterations int
	events     []contractx.Event
}

func newCycle() *cycle {
	return &cycle{
		id:    uuid.NewString(),
		phase: phaseIdle,
	}
}

func (c *cycle) transition(to phase) error {
	if c.phase == to {
		return nil
	}
	allowed, ok := allowedPhaseTransitions[c.phase]
	if !ok {
		return fmt.Errorf("unknown cycle phase %q", c.phase)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("invalid cycle transition %s -> %s", c.phase, to)
	}
	c.phase = to
	return nil
}

func (c *cycle) fail() {
	// failed is reachable from every non-terminal phase.
	if c.phase != phaseDone {
		c.phase = phaseFailed
	}
}

func (c *cycle) record(eventType contractx.EventType, build func(*contractx.Event)) {
	event := contractx.Event{
		CycleID:   c.id,
		Iteration: c.iterations,
		Type:      eventType,
	}
	if build != nil {
		build(&event)
	}
	c.events = append(c.events, event)
}
