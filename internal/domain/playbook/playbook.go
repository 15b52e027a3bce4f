// Package playbook maps a metric moving in a direction to a recommended action.
package playbook

import "github.com/okian/driftwatch/internal/domain/model"

const generic = "Discuss the change with the team in the next retro and agree one experiment to address it."

type key struct {
	metric string
	dir    model.Direction
}

// Static is an in-memory playbook. The zero value falls back to a generic action.
type Static struct {
	entries map[key]string
}

// Default returns the built-in playbook covering every tracked drift metric in
// both directions and the energy index indicators.
func Default() *Static {
	p := &Static{entries: make(map[key]string)}
	add := func(metric, up, down string) {
		p.entries[key{metric, model.DirectionPositive}] = up
		p.entries[key{metric, model.DirectionNegative}] = down
	}
	add("meetingLoad",
		"Run a meeting audit: cancel recurring meetings without an owner and set a no-meeting block.",
		"Meeting load dropped; check that decisions are still being made synchronously where needed.")
	add("afterHours",
		"Protect evenings: move async deadlines inside working hours and review on-call load.",
		"After-hours activity is down; keep the current boundaries in place.")
	add("responseLatency",
		"Response times are slipping; agree response expectations per channel and reduce channel sprawl.",
		"Responses are faster; confirm the team is not trading focus time for reactivity.")
	add("sentiment",
		"Sentiment improved; capture what changed so it can be repeated.",
		"Sentiment is falling; schedule 1:1s this week and look for a shared stressor.")
	add("networkBreadth",
		"Collaboration is widening; make sure new dependencies have clear owners.",
		"The team is becoming isolated; set up a cross-team review or pairing rotation.")
	add("focusTime",
		"Focus time is recovering; keep the protected blocks.",
		"Focus time is below the floor; introduce shared focus blocks and batch interruptions.")
	add("recoveryDays",
		"Recovery after spikes is taking too long; plan a lighter sprint and reduce WIP.",
		"Recovery is quicker; keep the current pacing.")
	add("energyIndex",
		"Energy is rising; keep the current rhythm.",
		"Energy is below the floor; review workload, priorities and recognition with the team.")
	add("resilience",
		"Resilience is strong.",
		"Resilience is the weakest indicator; reduce after-hours load and interruptions.")
	add("executionCapacity",
		"Execution capacity is strong.",
		"Execution capacity is the weakest indicator; trim meetings and protect focus time.")
	add("decisionSpeed",
		"Decisions are fast.",
		"Decisions are slow; name a decision owner and a deadline for open proposals.")
	add("structuralHealth",
		"The collaboration network is healthy.",
		"The collaboration network is thin; broaden reviews beyond the core group.")
	add("decisionClosureRate",
		"Discussions are closing with outcomes.",
		"Discussions rarely close; end meetings and threads with a written decision.")
	return p
}

// Set registers or replaces an entry.
func (p *Static) Set(metric string, dir model.Direction, action string) {
	if p.entries == nil {
		p.entries = make(map[key]string)
	}
	p.entries[key{metric, dir}] = action
}

// Recommend returns the action for (metric, dir), or a generic action.
func (p *Static) Recommend(metric string, dir model.Direction) string {
	if a, ok := p.entries[key{metric, dir}]; ok && a != "" {
		return a
	}
	return generic
}
