package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ftmgedf/pkg/models"
	"ftmgedf/pkg/storage"
)

type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore initializes GORM connection and AutoMigrates schemas.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	config := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Info),
		PrepareStmt: true, // Cache prepared statements for performance
	}

	db, err := gorm.Open(postgres.Open(connString), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.Run{}); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateRun persists a newly submitted run.
func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	result := s.db.WithContext(ctx).Create(run)
	if result.Error != nil {
		return fmt.Errorf("failed to create run: %w", result.Error)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	var run models.Run
	result := s.db.WithContext(ctx).First(&run, "id = ?", id)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, result.Error
	}
	return &run, nil
}

// ListRecentRuns returns the most recently scheduled runs, newest first.
func (s *PostgresStore) ListRecentRuns(ctx context.Context, limit, offset int) ([]models.Run, error) {
	var runs []models.Run

	result := s.db.WithContext(ctx).
		Order("scheduled_at desc").
		Limit(limit).
		Offset(offset).
		Find(&runs)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list runs: %w", result.Error)
	}
	return runs, nil
}

// UpdateRunState marks a run as running with the assigned node.
func (s *PostgresStore) UpdateRunState(ctx context.Context, id uuid.UUID, nodeID string, startedAt time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.RunRunning,
			"node_id":    nodeID,
			"started_at": startedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update run state: %w", result.Error)
	}
	return nil
}

// UpdateResult records the feasibility verdict and schedule reference for a finished run.
func (s *PostgresStore) UpdateResult(ctx context.Context, id uuid.UUID, status models.RunStatus, feasible bool, missedJobs, unresolved int, scheduleURI string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           status,
			"feasible":         feasible,
			"missed_job_count": missedJobs,
			"unresolved_count": unresolved,
			"schedule_uri":     scheduleURI,
			"completed_at":     now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update result: %w", result.Error)
	}
	return nil
}

// MarkOrphansAsFailed updates runs stuck in RUNNING state on dead nodes.
func (s *PostgresStore) MarkOrphansAsFailed(ctx context.Context, activeNodeIDs []string) (int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("status = ?", models.RunRunning)

	if len(activeNodeIDs) > 0 {
		query = query.Where("node_id NOT IN ?", activeNodeIDs)
	}

	result := query.Updates(map[string]interface{}{
		"status":       models.RunFailed,
		"completed_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

// ListRecentFailures returns runs that failed since a given time.
func (s *PostgresStore) ListRecentFailures(ctx context.Context, since time.Time, limit int) ([]models.Run, error) {
	var runs []models.Run
	result := s.db.WithContext(ctx).
		Where("status = ?", models.RunFailed).
		Where("completed_at >= ?", since).
		Order("completed_at desc").
		Limit(limit).
		Find(&runs)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list recent failures: %w", result.Error)
	}
	return runs, nil
}
