package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stitts-dev/dfs-lineup/internal/models"
	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

const maxRecent = 200

// Store persists optimization runs.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the history tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.OptimizationRun{}, &models.RunSlot{}); err != nil {
		return fmt.Errorf("failed to migrate history tables: %w", err)
	}
	return nil
}

// Record saves a run and its slots in one transaction.
func (s *Store) Record(ctx context.Context, run *models.OptimizationRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record optimization run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty schemaID matches
// every schema.
func (s *Store) Recent(ctx context.Context, schemaID string, limit int) ([]models.OptimizationRun, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	q := s.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit)
	if schemaID != "" {
		q = q.Where("schema_id = ?", schemaID)
	}

	var runs []models.OptimizationRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list optimization runs: %w", err)
	}
	return runs, nil
}

// ErrNotFound is returned by Get for unknown run IDs.
var ErrNotFound = errors.New("optimization run not found")

func (s *Store) Get(ctx context.Context, id string) (*models.OptimizationRun, error) {
	var run models.OptimizationRun
	err := s.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load optimization run: %w", err)
	}
	return &run, nil
}

// Prune deletes runs created before cutoff along with their slots and
// returns the number of runs removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.OptimizationRun{}).Select("id").Where("created_at < ?", cutoff)
		if err := tx.Where("run_id IN (?)", stale).Delete(&models.RunSlot{}).Error; err != nil {
			return err
		}
		result := tx.Where("created_at < ?", cutoff).Delete(&models.OptimizationRun{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune optimization runs: %w", err)
	}
	return removed, nil
}

// RunFromResult converts a completed optimization into a history row.
func RunFromResult(schema optimizer.Schema, poolSize int, res *optimizer.Result) *models.OptimizationRun {
	run := &models.OptimizationRun{
		ID:          res.OptimizationID,
		SchemaID:    schema.ID,
		Sport:       schema.Sport,
		Platform:    schema.Platform,
		Backend:     res.Solution.Backend,
		Status:      models.RunStatusOptimal,
		PoolSize:    poolSize,
		SalaryCap:   schema.SalaryCap,
		TotalSalary: res.Assignment.TotalSalary,
		TotalPoints: res.Assignment.TotalPoints,
		Nodes:       res.Solution.Nodes,
		ElapsedMs:   res.Solution.Elapsed.Milliseconds(),
	}
	if res.Fallback {
		run.Status = models.RunStatusFallback
	}
	for i, f := range res.Assignment.Fills {
		run.Slots = append(run.Slots, models.RunSlot{
			Position:   i,
			Slot:       f.Slot,
			Label:      f.Label,
			PlayerID:   f.Player.ID,
			PlayerName: f.Player.Name,
			Salary:     f.Player.Salary,
			Points:     f.Player.ProjectedPoints,
		})
	}
	return run
}

// RunFromError converts a failed optimization into a history row.
func RunFromError(schema optimizer.Schema, poolSize int, backend string, err error) *models.OptimizationRun {
	run := &models.OptimizationRun{
		SchemaID:  schema.ID,
		Sport:     schema.Sport,
		Platform:  schema.Platform,
		Backend:   backend,
		Status:    models.RunStatusError,
		Reason:    err.Error(),
		PoolSize:  poolSize,
		SalaryCap: schema.SalaryCap,
	}
	var failure *optimizer.SolveFailure
	if errors.As(err, &failure) {
		run.Nodes = failure.Nodes
		run.ElapsedMs = failure.Elapsed.Milliseconds()
		run.Reason = failure.Reason
		switch failure.Kind {
		case optimizer.FailureInfeasible:
			run.Status = models.RunStatusInfeasible
		case optimizer.FailureTimedOut:
			run.Status = models.RunStatusTimedOut
		}
	}
	return run
}
