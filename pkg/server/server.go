// Package server provides the HTTP API for remote classification.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/proclens/proclens/pkg/classify"
	"github.com/proclens/proclens/pkg/core"
	"github.com/proclens/proclens/pkg/export"
	"github.com/proclens/proclens/pkg/matrix"
	"github.com/proclens/proclens/pkg/parser"
)

// Server handles HTTP requests for log upload and classification.
type Server struct {
	engine        *core.Engine
	parserCfg     parser.Config
	maxUploadSize int64
	thresholds    struct {
		temporal    float64
		existential float64
	}
	jobs sync.Map // jobID -> *Job
	mux  *http.ServeMux
}

// Job represents a classification job. The mutex guards every field
// mutated after creation; handlers serialize under it.
type Job struct {
	mu sync.Mutex

	ID        string             `json:"id"`
	Status    string             `json:"status"` // pending, running, completed, failed
	InputName string             `json:"input_name"`
	InputPath string             `json:"-"`
	StartTime time.Time          `json:"start_time"`
	EndTime   *time.Time         `json:"end_time,omitempty"`
	Result    *classify.Result   `json:"result,omitempty"`
	Ratios    map[string]float64 `json:"ratios,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Options configures the server.
type Options struct {
	Engine               *core.Engine
	ParserConfig         parser.Config
	MaxUploadSize        int64
	TemporalThreshold    float64
	ExistentialThreshold float64
}

// NewServer creates a new HTTP server.
func NewServer(opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = core.NewEngine()
	}
	if opts.MaxUploadSize == 0 {
		opts.MaxUploadSize = 256 << 20
	}

	s := &Server{
		engine:        opts.Engine,
		parserCfg:     opts.ParserConfig,
		maxUploadSize: opts.MaxUploadSize,
		mux:           http.NewServeMux(),
	}
	s.thresholds.temporal = opts.TemporalThreshold
	s.thresholds.existential = opts.ExistentialThreshold

	s.setupRoutes()
	return s
}

// setupRoutes configures HTTP handlers.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.HandleFunc("/api/classify", s.handleClassify)
	s.mux.HandleFunc("/api/job/", s.handleJob)
	s.mux.HandleFunc("/api/download/", s.handleDownload)
	s.mux.HandleFunc("/api/health", s.handleHealth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS headers for development
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

// handleHealth reports server liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"})
}

// handleUpload receives an event log upload and creates a pending job.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		jsonError(w, "Failed to parse upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	jobID := uuid.New().String()
	tempPath := filepath.Join(os.TempDir(), "proclens-"+jobID+"-"+filepath.Base(header.Filename))

	out, err := os.Create(tempPath)
	if err != nil {
		jsonError(w, "Failed to save file", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	size, err := io.Copy(out, file)
	if err != nil {
		jsonError(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	job := &Job{
		ID:        jobID,
		Status:    "pending",
		InputName: header.Filename,
		InputPath: tempPath,
		StartTime: time.Now(),
	}
	s.jobs.Store(jobID, job)

	jsonResponse(w, map[string]interface{}{
		"job_id":    jobID,
		"file_name": header.Filename,
		"file_size": size,
	})
}

// handleClassify starts classification of a previously uploaded log.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		JobID                string   `json:"job_id"`
		TemporalThreshold    *float64 `json:"temporal_threshold,omitempty"`
		ExistentialThreshold *float64 `json:"existential_threshold,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	v, ok := s.jobs.Load(req.JobID)
	if !ok {
		jsonError(w, "Job not found", http.StatusNotFound)
		return
	}
	job := v.(*Job)

	temporal := s.thresholds.temporal
	existential := s.thresholds.existential
	if req.TemporalThreshold != nil {
		temporal = *req.TemporalThreshold
	}
	if req.ExistentialThreshold != nil {
		existential = *req.ExistentialThreshold
	}

	go s.runClassification(job, temporal, existential)

	jsonResponse(w, map[string]string{
		"job_id": job.ID,
		"status": "started",
	})
}

// runClassification parses the uploaded log and classifies it.
func (s *Server) runClassification(job *Job, temporal, existential float64) {
	job.mu.Lock()
	job.Status = "running"
	inputPath := job.InputPath
	job.mu.Unlock()

	fail := func(err error) {
		now := time.Now()
		job.mu.Lock()
		defer job.mu.Unlock()
		job.EndTime = &now
		job.Status = "failed"
		job.Error = err.Error()
	}

	log, err := parser.Load(context.Background(), inputPath, s.parserCfg)
	if err != nil {
		fail(err)
		return
	}

	m, err := s.engine.BuildMatrix(context.Background(), log, temporal, existential)
	if err != nil {
		fail(err)
		return
	}

	ratios := m.Ratios()
	result := s.engine.Classify(ratios)

	now := time.Now()
	job.mu.Lock()
	defer job.mu.Unlock()
	job.Result = &result
	job.Ratios = ratiosToJSON(ratios)
	job.EndTime = &now
	job.Status = "completed"
}

// handleJob returns job status.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Path[len("/api/job/"):]
	if jobID == "" {
		jsonError(w, "Job ID required", http.StatusBadRequest)
		return
	}

	v, ok := s.jobs.Load(jobID)
	if !ok {
		jsonError(w, "Job not found", http.StatusNotFound)
		return
	}

	job := v.(*Job)
	job.mu.Lock()
	jsonResponse(w, job)
	job.mu.Unlock()
}

// handleDownload serves the job result as a JSON report file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Path[len("/api/download/"):]
	if jobID == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	v, ok := s.jobs.Load(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	job := v.(*Job)
	job.mu.Lock()
	result := job.Result
	source := job.InputName
	job.mu.Unlock()

	if result == nil {
		http.Error(w, "No result available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.ID+".json"))
	if err := export.WriteJSON(w, export.Report{Source: source, Result: result}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Helper functions

func ratiosToJSON(ratios matrix.Ratios) map[string]float64 {
	if len(ratios) == 0 {
		return nil
	}
	out := make(map[string]float64, len(ratios))
	for cell, ratio := range ratios {
		out[cell.Temporal.String()+"/"+cell.Existential.String()] = ratio
	}
	return out
}

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
