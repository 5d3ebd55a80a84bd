package dto

// PutWorkerRequest represents request to register or update a worker
type PutWorkerRequest struct {
	Active         bool     `json:"active"`
	Deleted        bool     `json:"deleted"`
	Status         string   `json:"status" binding:"required,oneof=UP DOWN IN_RECOVERY"`
	HostName       string   `json:"host_name"`
	InstallPath    string   `json:"install_path"`
	Description    string   `json:"description"`
	OS             string   `json:"os"`
	Runtime        string   `json:"runtime"`
	RuntimeVersion string   `json:"runtime_version"`
	Groups         []string `json:"groups"`
}

// WorkerResponse represents one worker of the directory
type WorkerResponse struct {
	UUID           string   `json:"uuid"`
	Active         bool     `json:"active"`
	Deleted        bool     `json:"deleted"`
	Status         string   `json:"status"`
	HostName       string   `json:"host_name"`
	InstallPath    string   `json:"install_path"`
	Description    string   `json:"description"`
	OS             string   `json:"os"`
	Runtime        string   `json:"runtime"`
	RuntimeVersion string   `json:"runtime_version"`
	Groups         []string `json:"groups"`
}

// GetWorkerRequest represents request to read a worker
type GetWorkerRequest struct {
	// No body fields - uuid comes from path params
}

// ListWorkersRequest represents request to list eligible workers of a group
type ListWorkersRequest struct {
	// No body fields - group comes from query params
}

// ListWorkersResponse represents the eligible workers of a group
type ListWorkersResponse struct {
	Group      string             `json:"group"`
	Workers    []WorkerResponse   `json:"workers"`
	Pagination PaginationResponse `json:"pagination"`
}
