package domain

// WorkerStatus is the liveness state reported by worker lifecycle management
type WorkerStatus string

const (
	WorkerStatusUp         WorkerStatus = "UP"
	WorkerStatusDown       WorkerStatus = "DOWN"
	WorkerStatusInRecovery WorkerStatus = "IN_RECOVERY"
)

// Worker describes a dispatch target. Read-only to the coordination core.
type Worker struct {
	UUID           string       `json:"uuid" dynamodbav:"uuid"`
	Active         bool         `json:"active" dynamodbav:"active"`
	Deleted        bool         `json:"deleted" dynamodbav:"deleted"`
	Status         WorkerStatus `json:"status" dynamodbav:"status"`
	HostName       string       `json:"host_name" dynamodbav:"host_name"`
	InstallPath    string       `json:"install_path" dynamodbav:"install_path"`
	Description    string       `json:"description" dynamodbav:"description"`
	OS             string       `json:"os" dynamodbav:"os"`
	Runtime        string       `json:"runtime" dynamodbav:"runtime"`
	RuntimeVersion string       `json:"runtime_version" dynamodbav:"runtime_version"`
	Groups         []string     `json:"groups" dynamodbav:"groups"`
}

// InGroup reports whether the worker serves the named group
func (w *Worker) InGroup(group string) bool {
	for _, g := range w.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Eligible reports whether the worker may receive work at all
func (w *Worker) Eligible() bool {
	return w.Active && !w.Deleted && w.Status == WorkerStatusUp
}
