package engine

// Workflow states are stable identifiers stored on each step, distinct from the
// display title. Transitions dispatch on (state, action), never on titles.
const (
	StateProjectBrief          = "project_brief"
	StateStrategicDirection    = "strategic_direction"
	StateStrategyReview        = "strategy_review"
	StateStrategyRevisions     = "strategy_revisions"
	StateDeliverableSelection  = "deliverable_selection"
	StateStrategyMilestone     = "strategy_milestone"
	StateDeliverablesMilestone = "deliverables_milestone"
	StateBudgetAllocation      = "budget_allocation"
)

// Founder actions.
const (
	ActionInput   = "input"
	ActionChoose  = "choose"
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Step types.
const (
	StepInputNeeded  = "input_needed"
	StepDecisionGate = "decision_gate"
	StepApprovalGate = "approval_gate"
	StepMilestone    = "milestone"
	StepAgentOutput  = "agent_output"
)

// Agent display labels.
const (
	AgentStrategist = "Strategist"
	AgentDirector   = "Director"
	AgentCFO        = "CFO"
	AgentSystem     = "System"
)
