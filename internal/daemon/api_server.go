package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"cadenza/internal/api"
	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/logging"
	"cadenza/internal/rights"
)

type apiServer struct {
	bind        string
	logger      *slog.Logger
	daemon      *Daemon
	conflictSvc *api.ConflictService
	jobSvc      *api.JobService
	validator   *rights.Validator
	pageSize    int

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:        bind,
		logger:      logger,
		daemon:      d,
		conflictSvc: api.NewConflictService(d.store, time.Duration(cfg.API.StatsCacheSeconds)*time.Second),
		jobSvc:      api.NewJobService(d.store),
		validator:   rights.NewValidator(cfg.Validation.ChainEpsilon),
		pageSize:    cfg.Scan.PageSize,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJobItem)
	mux.HandleFunc("/api/conflicts", srv.handleConflicts)
	mux.HandleFunc("/api/conflicts/", srv.handleConflictItem)
	mux.HandleFunc("/api/stats", srv.handleStats)
	mux.HandleFunc("/api/validate", srv.handleValidate)
	mux.Handle("/metrics", d.metrics.Handler())

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		Database: api.DatabaseStatus{
			Path:      status.Database.DBPath,
			Healthy:   status.Database.DatabaseReadable && status.Database.IntegrityCheck,
			Integrity: status.Database.Error,
		},
	}
	if status.ActiveJob != nil {
		job := api.FromJob(status.ActiveJob)
		payload.ActiveJob = &job
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// launchRequest is the POST /api/jobs payload.
type launchRequest struct {
	Type string `json:"type"`
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := queryInt(r, "limit", 50)
		resp, err := s.jobSvc.List(r.Context(), limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req launchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		jobType, ok := catalog.ParseJobType(req.Type)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown job type %q", req.Type))
			return
		}
		job, err := s.daemon.LaunchJob(r.Context(), jobType)
		if err != nil {
			if errors.Is(err, catalog.ErrJobAlreadyRunning) {
				s.writeError(w, http.StatusConflict, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.JobResponse{Job: api.FromJob(job)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJobItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if idStr, ok := strings.CutSuffix(rest, "/cancel"); ok {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id, err := parseID(idStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid job id")
			return
		}
		flagged, err := s.jobSvc.Cancel(r.Context(), id)
		if err != nil {
			if errors.Is(err, catalog.ErrJobNotFound) {
				s.writeError(w, http.StatusNotFound, "job not found")
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !flagged {
			s.writeError(w, http.StatusConflict, "job already finished")
			return
		}
		job, err := s.jobSvc.Describe(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
		return
	}

	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := parseID(rest)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.jobSvc.Describe(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleConflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	var filter catalog.ConflictFilter
	if raw := strings.TrimSpace(query.Get("resolved")); raw != "" {
		resolved := raw == "1" || strings.EqualFold(raw, "true")
		filter.Resolved = &resolved
	}
	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		conflictType, ok := catalog.ParseConflictType(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown conflict type %q", raw))
			return
		}
		filter.Type = conflictType
	}
	if raw := strings.TrimSpace(query.Get("severity")); raw != "" {
		severity, ok := catalog.ParseSeverity(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown severity %q", raw))
			return
		}
		filter.Severity = severity
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", s.pageSize)
	resp, err := s.conflictSvc.List(r.Context(), filter, offset, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleConflictItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conflicts/")
	if idStr, ok := strings.CutSuffix(rest, "/resolve"); ok {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id, err := parseID(idStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid conflict id")
			return
		}
		resp, err := s.conflictSvc.Resolve(r.Context(), id)
		if err != nil {
			if errors.Is(err, catalog.ErrConflictNotFound) {
				s.writeError(w, http.StatusNotFound, "conflict not found")
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := parseID(rest)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}
	conflict, err := s.conflictSvc.Describe(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrConflictNotFound) {
			s.writeError(w, http.StatusNotFound, "conflict not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ConflictResponse{Conflict: *conflict})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.conflictSvc.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.validator.Validate(api.ToRightsChain(req.Chain))
	s.writeJSON(w, http.StatusOK, api.FromValidation(result, err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("failed to encode api response", logging.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}

func parseID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return 0, errors.New("empty id")
	}
	return strconv.ParseInt(trimmed, 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
