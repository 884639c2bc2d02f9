package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ftmgedf/internal/loader"
	"ftmgedf/pkg/models"
)

// --- Request/Response DTOs ---

// CreateRunRequest is the payload for submitting a task set to simulate.
// TaskSet is the raw task-set document (the same "taskset"/"startTime"/
// "endTime" shape internal/loader parses); any CoreConfig field left nil
// falls back to the server's configured defaults.
type CreateRunRequest struct {
	Name      string          `json:"name"`
	OwnerID   string          `json:"owner_id"`
	TaskSet   json.RawMessage `json:"task_set" binding:"required"`
	StartTime *int64          `json:"start_time"`
	EndTime   *int64          `json:"end_time"`

	NumCores          *int     `json:"num_cores"`
	NumFaulty         *int     `json:"num_faulty"`
	ActiveBackups     *int     `json:"active_backups"`
	LambdaC           *float64 `json:"lambda_c"`
	LambdaB           *float64 `json:"lambda_b"`
	LambdaR           *float64 `json:"lambda_r"`
	BurstyChance      *float64 `json:"bursty_chance"`
	FaultPeriodScaler *int64   `json:"fault_period_scaler"`
	Seed              *uint64  `json:"seed"`
}

// RunResponse is the API representation of a run.
type RunResponse struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	OwnerID         string            `json:"owner_id"`
	NodeID          *string           `json:"node_id"`
	Config          models.CoreConfig `json:"config"`
	StartTime       int64             `json:"start_time"`
	EndTime         int64             `json:"end_time"`
	Status          models.RunStatus  `json:"status"`
	Feasible        bool              `json:"feasible"`
	MissedJobCount  int               `json:"missed_job_count"`
	UnresolvedCount int               `json:"unresolved_count"`
	ScheduleURI     string            `json:"schedule_uri"`
	ScheduledAt     time.Time         `json:"scheduled_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

// --- Run Handlers ---

// createRun handles POST /api/v1/runs: validates and persists the
// submitted task set as a PENDING run, then dispatches it to a worker.
func (s *Server) createRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.validator.ValidateName(req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := loader.Parse(bytes.NewReader(req.TaskSet))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task set: " + err.Error()})
		return
	}
	if err := s.validator.ValidateTaskCount(len(doc.TaskSet)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.coreConfigFromRequest(&req)
	if err := s.validator.ValidateCoreConfig(cfg.NumCores, cfg.NumFaulty); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, end := int64(doc.StartTime), int64(doc.EndTime)
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if err := s.validator.ValidateHorizon(start, end); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New()
	run := &models.Run{
		ID:          runID,
		Name:        req.Name,
		OwnerID:     req.OwnerID,
		TaskSetJSON: req.TaskSet,
		Config:      cfg,
		StartTime:   start,
		EndTime:     end,
		Status:      models.RunPending,
		ScheduledAt: time.Now(),
	}

	if err := s.runStore.CreateRun(c.Request.Context(), run); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create run: " + err.Error()})
		return
	}

	scenario := &models.ScenarioRequest{
		RunID:       runID,
		TaskSetJSON: req.TaskSet,
		Config:      cfg,
		StartTime:   start,
		EndTime:     end,
		Attempt:     0,
	}
	if err := s.queue.Push(c.Request.Context(), scenario); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue run: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, runToResponse(run))
}

// listRuns handles GET /api/v1/runs
func (s *Server) listRuns(c *gin.Context) {
	limit := 50
	offset := 0

	runs, err := s.runStore.ListRecentRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs: " + err.Error()})
		return
	}

	response := make([]RunResponse, len(runs))
	for i, run := range runs {
		response[i] = runToResponse(&run)
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  response,
		"count": len(response),
	})
}

// getRun handles GET /api/v1/runs/:id
func (s *Server) getRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	run, err := s.runStore.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, runToResponse(run))
}

// cancelRun handles POST /api/v1/runs/:id/cancel. There is no in-flight
// cancellation channel to a worker mid-simulation (a run typically
// completes in well under a second); this marks the run CANCELLED so a
// worker that has not yet picked it up skips it when it pops it.
func (s *Server) cancelRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	if err := s.runStore.UpdateResult(c.Request.Context(), id, models.RunCancelled, false, 0, 0, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "run cancelled",
		"id":      id,
	})
}

// coreConfigFromRequest layers request overrides over the server's
// configured fault-model defaults.
func (s *Server) coreConfigFromRequest(req *CreateRunRequest) models.CoreConfig {
	cfg := models.CoreConfig{
		NumCores:          s.defaultCfg.NumCores,
		NumFaulty:         s.defaultCfg.NumFaulty,
		ActiveBackups:     s.defaultCfg.ActiveBackups,
		LambdaC:           s.defaultCfg.LambdaC,
		LambdaB:           s.defaultCfg.LambdaB,
		LambdaR:           s.defaultCfg.LambdaR,
		BurstyChance:      s.defaultCfg.BurstyChance,
		FaultPeriodScaler: s.defaultCfg.FaultPeriodScaler,
	}
	if req.NumCores != nil {
		cfg.NumCores = *req.NumCores
	}
	if req.NumFaulty != nil {
		cfg.NumFaulty = *req.NumFaulty
	}
	if req.ActiveBackups != nil {
		cfg.ActiveBackups = *req.ActiveBackups
	}
	if req.LambdaC != nil {
		cfg.LambdaC = *req.LambdaC
	}
	if req.LambdaB != nil {
		cfg.LambdaB = *req.LambdaB
	}
	if req.LambdaR != nil {
		cfg.LambdaR = *req.LambdaR
	}
	if req.BurstyChance != nil {
		cfg.BurstyChance = *req.BurstyChance
	}
	if req.FaultPeriodScaler != nil {
		cfg.FaultPeriodScaler = *req.FaultPeriodScaler
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg
}

// runToResponse converts a Run to its API representation.
func runToResponse(run *models.Run) RunResponse {
	return RunResponse{
		ID:              run.ID,
		Name:            run.Name,
		OwnerID:         run.OwnerID,
		NodeID:          run.NodeID,
		Config:          run.Config,
		StartTime:       run.StartTime,
		EndTime:         run.EndTime,
		Status:          run.Status,
		Feasible:        run.Feasible,
		MissedJobCount:  run.MissedJobCount,
		UnresolvedCount: run.UnresolvedCount,
		ScheduleURI:     run.ScheduleURI,
		ScheduledAt:     run.ScheduledAt,
		CreatedAt:       run.CreatedAt,
	}
}
