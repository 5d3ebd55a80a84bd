package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	coordinator "score/internal/coordinator/iface"
	"score/internal/domain"
	"score/internal/logger"
	"score/internal/plan"
)

// DefaultRefreshPath is the znode whose data changes trigger a plan reload
const DefaultRefreshPath = "/score/plans/refresh"

// PlanSource loads the current plan definitions
type PlanSource func(ctx context.Context) ([]*domain.ExecutionPlan, error)

// FilePlanSource reads plans from a JSON file
func FilePlanSource(path string) PlanSource {
	return func(context.Context) ([]*domain.ExecutionPlan, error) {
		return plan.LoadFile(path)
	}
}

// PlanManager keeps the plan store in sync with its source, with ZK coordination
type PlanManager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Refresh(ctx context.Context) error
}

type planManager struct {
	source      PlanSource
	registry    *plan.Registry
	store       *plan.Store
	coordinator coordinator.Coordinator
	refreshPath string
	logger      logger.Logger
	mu          sync.Mutex
}

// NewPlanManager creates a plan manager. coord may be nil, in which case
// plans are only loaded at start.
func NewPlanManager(
	source PlanSource,
	registry *plan.Registry,
	store *plan.Store,
	coord coordinator.Coordinator,
	refreshPath string,
	log logger.Logger,
) PlanManager {
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}
	return &planManager{
		source:      source,
		registry:    registry,
		store:       store,
		coordinator: coord,
		refreshPath: refreshPath,
		logger:      log.With(logger.String("component", "plan_manager")),
	}
}

// Start loads plans and sets up the ZK refresh watch
func (m *planManager) Start(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		return fmt.Errorf("failed initial plan load: %w", err)
	}

	if m.coordinator == nil {
		return nil
	}

	if err := m.coordinator.CreateNode(m.refreshPath, []byte{}); err != nil {
		m.logger.Warn("failed to create refresh node", logger.Error(err))
	}
	if err := m.coordinator.WatchNode(m.refreshPath, m.handleRefreshTrigger); err != nil {
		// non-fatal, plans stay as loaded
		m.logger.Warn("failed to setup ZK refresh watch", logger.Error(err))
	}
	return nil
}

func (m *planManager) Stop(ctx context.Context) error {
	return nil
}

// Refresh compiles every plan from the source and swaps the store. An
// invalid plan leaves the previous set in place.
func (m *planManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plans, err := m.source(ctx)
	if err != nil {
		return fmt.Errorf("failed to load plans: %w", err)
	}
	compiled, err := plan.CompileAll(plans, m.registry)
	if err != nil {
		return fmt.Errorf("failed to compile plans: %w", err)
	}

	m.store.Replace(compiled)
	m.logger.Info("plans loaded", logger.Int("count", len(compiled)))
	return nil
}

func (m *planManager) handleRefreshTrigger(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Refresh(ctx); err != nil {
		m.logger.Error("failed to refresh plans on ZK trigger", logger.Error(err))
	}
}
