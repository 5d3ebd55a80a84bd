package domain

import "time"

// BranchResult is what a finished branch contributes to its join
type BranchResult struct {
	BranchID  string         `json:"branch_id"`
	Index     int            `json:"index"`
	Failed    bool           `json:"failed"`
	Error     string         `json:"error,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

// SplitRecord tracks one fan-out until its fan-in resumed the parent
type SplitRecord struct {
	ExecutionID int64             `json:"execution_id"`
	SplitID     string            `json:"split_id"`
	SplitStepID int64             `json:"split_step_id"`
	FlowID      string            `json:"flow_id"`
	Expected    []string          `json:"expected"` // branch ids in branch order
	JoinPolicy  JoinPolicy        `json:"join_policy"`
	Publish     map[string]string `json:"publish,omitempty"`
	// Parent is the encoded parent context captured at split time.
	Parent    []byte                   `json:"parent"`
	Finished  map[string]*BranchResult `json:"finished"`
	Resumed   bool                     `json:"resumed"`
	CreatedAt int64                    `json:"created_at"`
	UpdatedAt int64                    `json:"updated_at"`
}

// NewSplitRecord starts tracking a split with the given expected branches
func NewSplitRecord(executionID int64, splitID string, splitStepID int64, flowID string, expected []string, policy JoinPolicy, publish map[string]string, parent []byte) *SplitRecord {
	now := time.Now().UnixMilli()
	return &SplitRecord{
		ExecutionID: executionID,
		SplitID:     splitID,
		SplitStepID: splitStepID,
		FlowID:      flowID,
		Expected:    expected,
		JoinPolicy:  policy,
		Publish:     publish,
		Parent:      parent,
		Finished:    make(map[string]*BranchResult, len(expected)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsExpected reports whether branchID belongs to this split
func (r *SplitRecord) IsExpected(branchID string) bool {
	for _, id := range r.Expected {
		if id == branchID {
			return true
		}
	}
	return false
}

// Record adds a branch result. It returns false when the branch is unknown
// or was already recorded, so re-delivery never double counts.
func (r *SplitRecord) Record(result *BranchResult) bool {
	if !r.IsExpected(result.BranchID) {
		return false
	}
	if _, seen := r.Finished[result.BranchID]; seen {
		return false
	}
	r.Finished[result.BranchID] = result
	r.UpdatedAt = time.Now().UnixMilli()
	return true
}

// Complete reports whether every expected branch has reported
func (r *SplitRecord) Complete() bool {
	for _, id := range r.Expected {
		if _, ok := r.Finished[id]; !ok {
			return false
		}
	}
	return true
}

// AnyFailed reports whether at least one finished branch failed
func (r *SplitRecord) AnyFailed() bool {
	for _, res := range r.Finished {
		if res.Failed {
			return true
		}
	}
	return false
}

// Ordered returns finished results in branch order
func (r *SplitRecord) Ordered() []*BranchResult {
	out := make([]*BranchResult, 0, len(r.Finished))
	for _, id := range r.Expected {
		if res, ok := r.Finished[id]; ok {
			out = append(out, res)
		}
	}
	return out
}
