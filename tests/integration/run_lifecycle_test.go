package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	config "ftmgedf/configs"
	"ftmgedf/pkg/api"
	"ftmgedf/pkg/models"
	"ftmgedf/pkg/storage/postgres"
	"ftmgedf/pkg/storage/redis"
)

// IntegrationTestSuite is the main test suite for integration tests
type IntegrationTestSuite struct {
	suite.Suite
	server     *api.Server
	store      *postgres.PostgresStore
	queue      *redis.RedisQueue
	httpServer *httptest.Server
}

// SetupSuite runs once before all tests
func (s *IntegrationTestSuite) SetupSuite() {
	// Skip integration tests if SKIP_INTEGRATION_TESTS is set
	if os.Getenv("SKIP_INTEGRATION_TESTS") == "true" {
		s.T().Skip("Skipping integration tests (SKIP_INTEGRATION_TESTS=true)")
	}

	gin.SetMode(gin.TestMode)

	// Get connection strings from environment or use defaults
	dbHost := getEnv("TEST_DB_HOST", "localhost")
	dbPort := getEnv("TEST_DB_PORT", "5432")
	dbUser := getEnv("TEST_DB_USER", "ftmgedf")
	dbPass := getEnv("TEST_DB_PASS", "password")
	dbName := getEnv("TEST_DB_NAME", "ftmgedf_test")

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPass, dbName,
	)

	// Initialize PostgreSQL
	store, err := postgres.NewPostgresStore(connStr)
	if err != nil {
		s.T().Skipf("Skipping integration tests: %v", err)
	}
	s.store = store

	// Initialize Redis
	redisAddr := fmt.Sprintf("%s:%s",
		getEnv("TEST_REDIS_HOST", "localhost"),
		getEnv("TEST_REDIS_PORT", "6379"),
	)
	queue, err := redis.NewRedisQueue(redisAddr)
	if err != nil {
		s.T().Skipf("Skipping integration tests: %v", err)
	}
	s.queue = queue

	// Create API server
	s.server = api.NewServer(api.Config{
		Port:     "0", // Random port
		RunStore: store,
		Queue:    queue,
		Defaults: config.LoadConfig(),
	})
}

// TearDownSuite runs once after all tests
func (s *IntegrationTestSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}
	if s.queue != nil {
		s.queue.Close()
	}
}

// SetupTest runs before each test
func (s *IntegrationTestSuite) SetupTest() {
	// Clean up any existing data
	ctx := context.Background()
	// In a real test, you'd truncate tables here
	_ = ctx
}

func sampleTaskSet() []byte {
	return []byte(`{"taskset":[{"taskId":1,"period":10,"wcet":2},{"taskId":2,"period":15,"wcet":3}],"startTime":0,"endTime":60}`)
}

// TestRunLifecycle tests the full run submission -> simulation -> completion flow
func (s *IntegrationTestSuite) TestRunLifecycle() {
	ctx := context.Background()

	// 1. Create a run
	run := &models.Run{
		ID:          uuid.New(),
		Name:        "integration-test-run",
		TaskSetJSON: sampleTaskSet(),
		Config: models.CoreConfig{
			NumCores:  4,
			NumFaulty: 1,
		},
		StartTime:   0,
		EndTime:     60,
		Status:      models.RunPending,
		ScheduledAt: time.Now(),
	}

	err := s.store.CreateRun(ctx, run)
	require.NoError(s.T(), err, "Failed to create run")

	// 2. Verify run was created
	retrieved, err := s.store.GetRun(ctx, run.ID)
	require.NoError(s.T(), err, "Failed to retrieve run")
	assert.Equal(s.T(), run.Name, retrieved.Name)
	assert.Equal(s.T(), run.Config.NumCores, retrieved.Config.NumCores)

	// 3. Create the consumer group first: EnsureGroup starts a new group at
	// the end of the stream, so only entries pushed afterwards reach it.
	const testGroup = "test-workers"
	const testConsumer = "test-consumer-1"
	_ = s.queue.EnsureGroup(ctx, testGroup)

	// Push the matching scenario request to the queue
	scenario := &models.ScenarioRequest{
		RunID:       run.ID,
		TaskSetJSON: run.TaskSetJSON,
		Config:      run.Config,
		StartTime:   run.StartTime,
		EndTime:     run.EndTime,
	}
	err = s.queue.Push(ctx, scenario)
	require.NoError(s.T(), err, "Failed to push to queue")

	// 4. Pop from queue through the group created above
	msgID, popped, err := s.queue.Pop(ctx, testGroup, testConsumer)
	require.NoError(s.T(), err, "Failed to pop from queue")
	require.NotNil(s.T(), popped, "Pop returned nil scenario request")
	assert.Equal(s.T(), scenario.RunID, popped.RunID)

	// 5. Mark as completed (would be done by a worker in a real scenario)
	err = s.store.UpdateResult(ctx, run.ID, models.RunSuccess, true, 0, 0, "")
	require.NoError(s.T(), err, "Failed to update run result")

	// 6. Acknowledge queue message
	err = s.queue.Ack(ctx, testGroup, msgID)
	require.NoError(s.T(), err, "Failed to ack message")

	final, err := s.store.GetRun(ctx, run.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RunSuccess, final.Status)
	assert.True(s.T(), final.Feasible)
}

// TestRetryBehavior tests run retry after a failed simulation
func (s *IntegrationTestSuite) TestRetryBehavior() {
	ctx := context.Background()

	run := &models.Run{
		ID:          uuid.New(),
		Name:        "retry-test-run",
		TaskSetJSON: sampleTaskSet(),
		Config:      models.CoreConfig{NumCores: 2, NumFaulty: 2},
		StartTime:   0,
		EndTime:     60,
		Status:      models.RunPending,
		ScheduledAt: time.Now(),
	}

	err := s.store.CreateRun(ctx, run)
	require.NoError(s.T(), err)

	// Simulate a failure
	err = s.store.UpdateResult(ctx, run.ID, models.RunFailed, false, 0, 0, "")
	require.NoError(s.T(), err)

	failures, err := s.store.ListRecentFailures(ctx, time.Now().Add(-time.Minute), 10)
	require.NoError(s.T(), err)

	var found bool
	for _, f := range failures {
		if f.ID == run.ID {
			found = true
		}
	}
	assert.True(s.T(), found, "failed run should appear in recent failures")
}

// TestConcurrentWorkers pushes several runs and checks that every one of
// them is delivered through a single consumer group.
func (s *IntegrationTestSuite) TestConcurrentWorkers() {
	ctx := context.Background()
	numRuns := 10

	// The group is created before pushing: a new group starts at the end
	// of the stream.
	const testGroup = "test-concurrent"
	const testConsumer = "test-consumer"
	_ = s.queue.EnsureGroup(ctx, testGroup)

	for i := 0; i < numRuns; i++ {
		run := &models.Run{
			ID:          uuid.New(),
			Name:        fmt.Sprintf("concurrent-run-%d", i),
			TaskSetJSON: sampleTaskSet(),
			Config:      models.CoreConfig{NumCores: 4, NumFaulty: 1},
			StartTime:   0,
			EndTime:     60,
			Status:      models.RunPending,
			ScheduledAt: time.Now(),
		}
		err := s.store.CreateRun(ctx, run)
		require.NoError(s.T(), err)

		scenario := &models.ScenarioRequest{
			RunID:       run.ID,
			TaskSetJSON: run.TaskSetJSON,
			Config:      run.Config,
			StartTime:   run.StartTime,
			EndTime:     run.EndTime,
		}
		err = s.queue.Push(ctx, scenario)
		require.NoError(s.T(), err)
	}

	// Pop all runs with one consumer
	var processed int
	for i := 0; i < numRuns; i++ {
		msgID, req, err := s.queue.Pop(ctx, testGroup, testConsumer)
		if err == nil && req != nil {
			processed++
			_ = s.queue.Ack(ctx, testGroup, msgID)
		}
	}

	assert.Equal(s.T(), numRuns, processed, "All runs should be processed")
}

// TestAPIEndpoints tests the REST API endpoints
func (s *IntegrationTestSuite) TestAPIEndpoints() {
	// This test would use httptest to test API endpoints
	// Skipped if no test server available
	if s.httpServer == nil {
		s.T().Skip("HTTP server not available")
	}
}

// Helper functions
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// TestIntegration runs the integration test suite
func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
