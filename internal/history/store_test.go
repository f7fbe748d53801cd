package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stitts-dev/dfs-lineup/internal/models"
	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

type StoreTestSuite struct {
	suite.Suite
	db    *gorm.DB
	store *Store
	ctx   context.Context
}

func (s *StoreTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.db = db
	s.store = NewStore(db)
	s.ctx = context.Background()
	s.Require().NoError(s.store.Migrate())
}

func (s *StoreTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func testSchema() optimizer.Schema {
	schema, _ := optimizer.LookupSchema("draftkings_golf")
	return schema
}

func testResult() *optimizer.Result {
	sol := &optimizer.Solution{Backend: "branch-and-bound", Optimal: true, Nodes: 17, Elapsed: 25 * time.Millisecond}
	assignment := &optimizer.Assignment{Schema: "draftkings_golf"}
	for i := 0; i < 6; i++ {
		p := optimizer.Player{
			ID:              fmt.Sprintf("g%d", i),
			Name:            fmt.Sprintf("Golfer %d", i),
			Salary:          8000,
			ProjectedPoints: 60,
			Categories:      []optimizer.PositionCategory{"G"},
		}
		sol.Players = append(sol.Players, p)
		assignment.Fills = append(assignment.Fills, optimizer.SlotFill{Slot: fmt.Sprintf("G%d", i+1), Label: "G", Player: p})
		assignment.TotalSalary += p.Salary
		assignment.TotalPoints += p.ProjectedPoints
	}
	sol.TotalSalary = assignment.TotalSalary
	sol.TotalPoints = assignment.TotalPoints
	return &optimizer.Result{OptimizationID: "6f1c2d1e-0000-4000-8000-000000000001", Solution: sol, Assignment: assignment}
}

func (s *StoreTestSuite) TestRecordAndGet() {
	run := RunFromResult(testSchema(), 40, testResult())
	s.Require().NoError(s.store.Record(s.ctx, run))

	got, err := s.store.Get(s.ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusOptimal, got.Status)
	s.Equal("draftkings_golf", got.SchemaID)
	s.Equal("golf", got.Sport)
	s.Equal(48000, got.TotalSalary)
	s.Equal(int64(25), got.ElapsedMs)
	s.Require().Len(got.Slots, 6)
	for i, slot := range got.Slots {
		s.Equal(i, slot.Position)
		s.Equal(fmt.Sprintf("G%d", i+1), slot.Slot)
		s.Equal(fmt.Sprintf("g%d", i), slot.PlayerID)
	}

	_, err = s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreTestSuite) TestRecordFailures() {
	schema := testSchema()

	infeasible := RunFromError(schema, 3, "enumerate", &optimizer.SolveFailure{
		Kind:   optimizer.FailureInfeasible,
		Reason: "salary cap too low",
		Nodes:  9,
	})
	s.Require().NoError(s.store.Record(s.ctx, infeasible))
	s.NotEmpty(infeasible.ID)

	timedOut := RunFromError(schema, 3, "enumerate", &optimizer.SolveFailure{Kind: optimizer.FailureTimedOut})
	s.Require().NoError(s.store.Record(s.ctx, timedOut))

	other := RunFromError(schema, 3, "enumerate", fmt.Errorf("boom"))
	s.Require().NoError(s.store.Record(s.ctx, other))

	got, err := s.store.Get(s.ctx, infeasible.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusInfeasible, got.Status)
	s.Equal("salary cap too low", got.Reason)
	s.Equal(9, got.Nodes)
	s.Empty(got.Slots)

	got, err = s.store.Get(s.ctx, timedOut.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusTimedOut, got.Status)

	got, err = s.store.Get(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusError, got.Status)
	s.Equal("boom", got.Reason)
}

func (s *StoreTestSuite) TestRecent() {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := RunFromResult(testSchema(), 40, testResult())
		run.ID = fmt.Sprintf("run-%d", i)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if i%2 == 1 {
			run.SchemaID = "fanduel_golf"
		}
		s.Require().NoError(s.store.Record(s.ctx, run))
	}

	runs, err := s.store.Recent(s.ctx, "", 3)
	s.Require().NoError(err)
	s.Require().Len(runs, 3)
	s.Equal("run-4", runs[0].ID)
	s.Equal("run-3", runs[1].ID)
	s.Len(runs[0].Slots, 6)

	runs, err = s.store.Recent(s.ctx, "fanduel_golf", 0)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.Equal("run-3", runs[0].ID)
	s.Equal("run-1", runs[1].ID)
}

func (s *StoreTestSuite) TestFallbackStatus() {
	res := testResult()
	res.Fallback = true
	run := RunFromResult(testSchema(), 40, res)
	s.Equal(models.RunStatusFallback, run.Status)
}

func (s *StoreTestSuite) TestParams() {
	run := RunFromResult(testSchema(), 40, testResult())
	req := optimizer.Request{
		Locked:        []string{"g1"},
		Excluded:      []string{"g9", "g8"},
		TimeLimit:     1500 * time.Millisecond,
		NodeLimit:     250,
		AllowFallback: true,
	}
	s.Require().NoError(SetParams(run, ParamsFromRequest(req)))
	s.Require().NoError(s.store.Record(s.ctx, run))

	got, err := s.store.Get(s.ctx, run.ID)
	s.Require().NoError(err)
	params, err := DecodeParams(got)
	s.Require().NoError(err)
	s.Equal(RunParams{
		Locked:        []string{"g1"},
		Excluded:      []string{"g9", "g8"},
		TimeLimitMs:   1500,
		NodeLimit:     250,
		AllowFallback: true,
	}, params)

	bare := RunFromError(testSchema(), 3, "enumerate", fmt.Errorf("boom"))
	params, err = DecodeParams(bare)
	s.Require().NoError(err)
	s.Equal(RunParams{}, params)
}

func (s *StoreTestSuite) seedAges(now time.Time, ages ...time.Duration) {
	for i, age := range ages {
		run := RunFromResult(testSchema(), 40, testResult())
		run.ID = fmt.Sprintf("run-%d", i)
		run.CreatedAt = now.Add(-age)
		s.Require().NoError(s.store.Record(s.ctx, run))
	}
}

func (s *StoreTestSuite) TestPrune() {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.seedAges(now, time.Hour, 48*time.Hour, 72*time.Hour)

	removed, err := s.store.Prune(s.ctx, now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(2), removed)

	runs, err := s.store.Recent(s.ctx, "", 0)
	s.Require().NoError(err)
	s.Require().Len(runs, 1)
	s.Equal("run-0", runs[0].ID)

	var slots int64
	s.Require().NoError(s.db.Model(&models.RunSlot{}).Count(&slots).Error)
	s.Equal(int64(6), slots)
}

func (s *StoreTestSuite) TestPruner() {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.seedAges(now, time.Hour, 10*24*time.Hour)

	pruner, err := NewPruner(s.store, 7*24*time.Hour, "@hourly", nil)
	s.Require().NoError(err)
	pruner.now = func() time.Time { return now }

	removed, err := pruner.PruneOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	pruner.Start()
	pruner.Stop()

	_, err = NewPruner(s.store, 0, "@hourly", nil)
	s.Error(err)
	_, err = NewPruner(s.store, time.Hour, "every so often", nil)
	s.ErrorContains(err, "invalid prune schedule")
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
