package dto

// ListPlansRequest represents request to list loaded plans
type ListPlansRequest struct {
	// No body fields
}

// PlanSummary describes one loaded flow
type PlanSummary struct {
	FlowID      string `json:"flow_id"`
	BeginStepID int64  `json:"begin_step_id"`
	Steps       int    `json:"steps"`
}

// ListPlansResponse represents the loaded plans, ordered by flow id
type ListPlansResponse struct {
	Plans      []PlanSummary      `json:"plans"`
	Pagination PaginationResponse `json:"pagination"`
}

// RefreshPlansRequest represents request to reload plans
type RefreshPlansRequest struct {
	// No body fields
}

// RefreshPlansResponse reports how the reload was carried out. Mode is
// "broadcast" when every instance was notified through the refresh node and
// "local" when only this instance reloaded.
type RefreshPlansResponse struct {
	Mode  string `json:"mode"`
	Plans int    `json:"plans"`
}
