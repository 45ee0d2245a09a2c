package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	workunitservice "hitloop/contexts/annotation-pipeline/workunit-service"
	pipelineerrors "hitloop/contexts/annotation-pipeline/workunit-service/domain/errors"
	pipelinehttp "hitloop/contexts/annotation-pipeline/workunit-service/transport/http"
	_ "hitloop/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

// HealthCheck reports readiness of a downstream dependency.
type HealthCheck func(ctx context.Context) error

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	pipeline workunitservice.Module
	health   HealthCheck
}

func New(pipeline workunitservice.Module, health HealthCheck, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		pipeline: pipeline,
		health:   health,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /v1/annotations", s.handleCreateAnnotation)
	s.mux.HandleFunc("GET /v1/tasks/{task_id}", s.handleGetTask)
	s.mux.HandleFunc("GET /v1/tasks/{task_id}/work-units", s.handleListWorkUnits)
	s.mux.HandleFunc("GET /v1/tasks/{task_id}/annotations", s.handleListAnnotations)
	s.mux.HandleFunc("GET /v1/work-units/{work_unit_id}", s.handleGetWorkUnit)
	s.mux.HandleFunc("GET /v1/events", s.handleListEvents)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writePipelineError(w, http.StatusServiceUnavailable, "dependency_unavailable", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req pipelinehttp.CreateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePipelineError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.pipeline.Handler.CreateAnnotationHandler(r.Context(), req)
	if err != nil {
		writePipelineDomainError(w, err)
		return
	}
	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pipeline.Handler.GetTaskHandler(r.Context(), r.PathValue("task_id"))
	if err != nil {
		writePipelineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListWorkUnits(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pipeline.Handler.ListWorkUnitsHandler(r.Context(), r.PathValue("task_id"))
	if err != nil {
		writePipelineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pipeline.Handler.ListAnnotationsHandler(r.Context(), r.PathValue("task_id"))
	if err != nil {
		writePipelineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetWorkUnit(w http.ResponseWriter, r *http.Request) {
	resp, err := s.pipeline.Handler.GetWorkUnitHandler(r.Context(), r.PathValue("work_unit_id"))
	if err != nil {
		writePipelineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writePipelineError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.pipeline.Handler.ListEventsHandler(r.Context(), limit)
	if err != nil {
		writePipelineDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writePipelineDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipelineerrors.ErrTaskNotFound):
		writePipelineError(w, http.StatusNotFound, "task_not_found", err.Error())
	case errors.Is(err, pipelineerrors.ErrWorkUnitNotFound):
		writePipelineError(w, http.StatusNotFound, "work_unit_not_found", err.Error())
	case errors.Is(err, pipelineerrors.ErrAnnotationNotFound):
		writePipelineError(w, http.StatusNotFound, "annotation_not_found", err.Error())
	case errors.Is(err, pipelineerrors.ErrInvalidAnnotationInput):
		writePipelineError(w, http.StatusBadRequest, "invalid_annotation", err.Error())
	case errors.Is(err, pipelineerrors.ErrWorkUnitTaskMismatch):
		writePipelineError(w, http.StatusBadRequest, "work_unit_mismatch", err.Error())
	case errors.Is(err, pipelineerrors.ErrDuplicateWorkUnit):
		writePipelineError(w, http.StatusConflict, "duplicate_work_unit", err.Error())
	default:
		writePipelineError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePipelineError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pipelinehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
