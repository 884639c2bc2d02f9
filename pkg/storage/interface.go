package storage

import (
	"context"
	"errors"
	"time"

	"ftmgedf/pkg/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// RunStore is the data access layer for run history: the submitted
// task set and core configuration, and the feasibility verdict once a
// worker has simulated it. Never on the simulation's hot path — every
// scheduling decision is made purely in-memory by internal/scheduler.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.Run) error

	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)

	// ListRecentRuns returns the most recently scheduled runs, newest first.
	ListRecentRuns(ctx context.Context, limit, offset int) ([]models.Run, error)

	// UpdateRunState marks a run as running on a given node.
	UpdateRunState(ctx context.Context, id uuid.UUID, nodeID string, startedAt time.Time) error

	// UpdateResult records the feasibility verdict and schedule reference.
	UpdateResult(ctx context.Context, id uuid.UUID, status models.RunStatus, feasible bool, missedJobs, unresolved int, scheduleURI string) error

	// MarkOrphansAsFailed fails runs stuck RUNNING on nodes no longer active.
	MarkOrphansAsFailed(ctx context.Context, activeNodeIDs []string) (int64, error)

	// ListRecentFailures returns runs that failed since a given time.
	ListRecentFailures(ctx context.Context, since time.Time, limit int) ([]models.Run, error)
}

// Queue dispatches scenarios from submitters (the API, the sweep daemon)
// to the workers that simulate them.
type Queue interface {
	// Push enqueues a scenario request.
	Push(ctx context.Context, req *models.ScenarioRequest) error

	// Pop retrieves a scenario request for a specific consumer group.
	Pop(ctx context.Context, group string, consumer string) (string, *models.ScenarioRequest, error)

	// Ack acknowledges a scenario request as processed.
	Ack(ctx context.Context, group string, msgID string) error

	// EnsureGroup ensures the consumer group exists.
	EnsureGroup(ctx context.Context, group string) error

	// Depth reports the number of pending entries in the stream.
	Depth(ctx context.Context) (int64, error)
}
