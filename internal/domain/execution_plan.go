package domain

// ActionID is a stable identifier of a registered step capability
type ActionID string

// StepData is the typed bag of inputs an action or navigator reads
type StepData map[string]any

// JoinPolicy decides the parent's outcome once every branch reported
type JoinPolicy string

const (
	JoinPolicyFailOnAny      JoinPolicy = "FAIL_ON_ANY"
	JoinPolicyIgnoreFailures JoinPolicy = "IGNORE_FAILURES"
)

// Outcome names used by the engine itself
const (
	OutcomeNext    = "NEXT"
	OutcomeSuccess = "SUCCESS"
	OutcomeFailure = "FAILURE"
)

// SplitSpec turns a step into a fan-out point
type SplitSpec struct {
	// BranchBeginStepID is where every branch starts navigating.
	BranchBeginStepID int64 `json:"branch_begin_step_id"`
	// Arity is the static branch count; ignored when ItemsVariable is set.
	Arity int `json:"arity,omitempty"`
	// ItemsVariable names a list variable; one branch per element (multi-instance).
	ItemsVariable string `json:"items_variable,omitempty"`
	// ItemVariable is the branch variable that receives its element.
	ItemVariable string     `json:"item_variable,omitempty"`
	JoinPolicy   JoinPolicy `json:"join_policy"`
	// Publish maps parent variable -> branch variable; the parent gets the list of branch values.
	Publish map[string]string `json:"publish,omitempty"`
}

// ExecutionStep is one node of a compiled plan
type ExecutionStep struct {
	StepID           int64             `json:"step_id"`
	Action           ActionID          `json:"action"`
	ActionData       StepData          `json:"action_data,omitempty"`
	NavigationAction ActionID          `json:"navigation_action"`
	NavigationData   StepData          `json:"navigation_data,omitempty"`
	Outcomes         map[string]*int64 `json:"outcomes"` // nil target ends the flow
	WorkerGroup      string            `json:"worker_group,omitempty"`
	Split            *SplitSpec        `json:"split,omitempty"`
}

// IsSplit reports whether the step fans out into branches
func (s *ExecutionStep) IsSplit() bool {
	return s.Split != nil
}

// ExecutionPlan is the immutable step graph of one flow version
type ExecutionPlan struct {
	FlowID      string                   `json:"flow_id"`
	BeginStepID int64                    `json:"begin_step_id"`
	Steps       map[int64]*ExecutionStep `json:"steps"`
}

// NewExecutionPlan creates an empty plan
func NewExecutionPlan(flowID string, beginStepID int64) *ExecutionPlan {
	return &ExecutionPlan{
		FlowID:      flowID,
		BeginStepID: beginStepID,
		Steps:       make(map[int64]*ExecutionStep),
	}
}

// AddStep registers a step; the last one wins on duplicate ids
func (p *ExecutionPlan) AddStep(step *ExecutionStep) *ExecutionPlan {
	p.Steps[step.StepID] = step
	return p
}

// Step looks a step up by id
func (p *ExecutionPlan) Step(stepID int64) (*ExecutionStep, bool) {
	step, ok := p.Steps[stepID]
	return step, ok
}
