// Package serve exposes the trained model over HTTP. The loaded bundle
// is immutable, so request handling needs no locking beyond what the
// drift detector does internally.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"mindrisk/internal/clean"
	"mindrisk/internal/drift"
	"mindrisk/internal/explain"
	"mindrisk/internal/metrics"
	"mindrisk/internal/model"
	"mindrisk/internal/survey"
)

// ValidationError rejects a prediction request before it reaches the
// model.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Reason)
}

// Config holds the serving parameters.
type Config struct {
	Port           int
	Threshold      float64
	TopK           int
	RequestTimeout time.Duration
}

// Server provides the HTTP API for risk predictions.
type Server struct {
	bundle     *model.Bundle
	explainer  *explain.Explainer
	detector   *drift.Detector
	importance []explain.FeatureImportance
	metrics    *metrics.Metrics
	cfg        Config
	startedAt  time.Time
	server     *http.Server
}

// PredictionRequest carries one survey response. Age, gender, family
// history and work interference must be present; every other answer is
// imputed with the training-time defaults when absent.
type PredictionRequest struct {
	Age                     *float64 `json:"age"`
	Gender                  string   `json:"gender"`
	FamilyHistory           string   `json:"family_history"`
	WorkInterfere           string   `json:"work_interfere"`
	NoEmployees             string   `json:"no_employees"`
	RemoteWork              string   `json:"remote_work"`
	TechCompany             string   `json:"tech_company"`
	Benefits                string   `json:"benefits"`
	CareOptions             string   `json:"care_options"`
	WellnessProgram         string   `json:"wellness_program"`
	SeekHelp                string   `json:"seek_help"`
	Anonymity               string   `json:"anonymity"`
	Leave                   string   `json:"leave"`
	MentalHealthConsequence string   `json:"mental_health_consequence"`
	PhysHealthConsequence   string   `json:"phys_health_consequence"`
	Coworkers               string   `json:"coworkers"`
	Supervisor              string   `json:"supervisor"`
	MentalHealthInterview   string   `json:"mental_health_interview"`
	PhysHealthInterview     string   `json:"phys_health_interview"`
	MentalVsPhysical        string   `json:"mental_vs_physical"`
	ObsConsequence          string   `json:"obs_consequence"`
}

// PredictionResponse is the prediction result.
type PredictionResponse struct {
	Label           string                      `json:"label"`
	Probability     float64                     `json:"probability"`
	Threshold       float64                     `json:"threshold"`
	TopAttributions []explain.FeatureImportance `json:"top_attributions"`
	ModelVersion    string                      `json:"model_version"`
	Latency         float64                     `json:"latency_ms"`
	Timestamp       time.Time                   `json:"timestamp"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// New builds the server around a loaded bundle. importance is the
// global ranking computed at training time; it may be nil when the
// training run predates importance persistence.
func New(b *model.Bundle, importance []explain.FeatureImportance, m *metrics.Metrics, driftThreshold float64, driftCooldown time.Duration, cfg Config) (*Server, error) {
	// The scaler maps the training mean to the origin, so a single
	// zero row is the reference point in scaled space.
	ref := [][]float64{make([]float64, len(b.Meta.FeatureNames))}
	ex, err := explain.New(b.Model, b.Meta.FeatureNames, ref)
	if err != nil {
		return nil, fmt.Errorf("build explainer: %w", err)
	}

	s := &Server{
		bundle:     b,
		explainer:  ex,
		detector:   drift.NewDetector(b.Baseline, driftThreshold, driftCooldown),
		importance: importance,
		metrics:    m,
		cfg:        cfg,
		startedAt:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.HandleFunc("/importance", s.handleImportance)
	mux.HandleFunc("/drift", s.handleDrift)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().
		Str("addr", s.server.Addr).
		Str("model_version", s.bundle.Meta.Version).
		Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()

	var req PredictionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := validate(&req); err != nil {
		s.metrics.ValidationErrors.Inc()
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	vec, err := s.bundle.Cleaner.Transform(toRecord(&req))
	if err != nil {
		if errors.Is(err, clean.ErrAgeRange) {
			s.metrics.ValidationErrors.Inc()
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		s.metrics.PredictionErrors.Inc()
		log.Error().Err(err).Msg("transform failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "prediction failed")
		return
	}

	// Drift statistics are tracked in raw feature space, before scaling.
	s.detector.Observe(vec)

	scaled := s.bundle.Scaler.ApplyRow(vec)
	prob := s.bundle.Model.PredictProba(scaled)

	attr, err := s.explainer.Local(scaled)
	if err != nil {
		s.metrics.PredictionErrors.Inc()
		log.Error().Err(err).Msg("attribution failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "prediction failed")
		return
	}

	label := "not_at_risk"
	if prob >= s.cfg.Threshold {
		label = "at_risk"
		s.metrics.AtRiskTotal.Inc()
	}

	latency := time.Since(start)
	s.metrics.PredictionsTotal.Inc()
	s.metrics.PredictionLatency.Observe(latency.Seconds())
	s.metrics.RiskProbabilities.Observe(prob)

	resp := PredictionResponse{
		Label:           label,
		Probability:     prob,
		Threshold:       s.cfg.Threshold,
		TopAttributions: attr.TopK(s.cfg.TopK),
		ModelVersion:    s.bundle.Meta.Version,
		Latency:         float64(latency.Microseconds()) / 1000.0,
		Timestamp:       time.Now(),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"model_version":  s.bundle.Meta.Version,
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	meta := s.bundle.Meta
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":       meta.Version,
		"run_id":        meta.RunID,
		"kind":          meta.Kind,
		"trained_at":    meta.TrainedAt,
		"metrics":       meta.Metrics,
		"training_rows": meta.TrainingRows,
		"seed":          meta.Seed,
		"features":      meta.FeatureNames,
	})
}

func (s *Server) handleImportance(w http.ResponseWriter, r *http.Request) {
	if s.importance == nil {
		writeError(w, http.StatusNotFound, "not_found", "no importance ranking recorded for the active model")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model_version": s.bundle.Meta.Version,
		"importance":    s.importance,
	})
}

func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.detector.Snapshot())
}

// validate enforces the required request fields.
func validate(req *PredictionRequest) *ValidationError {
	if req.Age == nil {
		return &ValidationError{Field: "age", Reason: "is required"}
	}
	if req.Gender == "" {
		return &ValidationError{Field: "gender", Reason: "is required"}
	}
	if req.FamilyHistory == "" {
		return &ValidationError{Field: "family_history", Reason: "is required"}
	}
	if req.WorkInterfere == "" {
		return &ValidationError{Field: "work_interfere", Reason: "is required"}
	}
	return nil
}

// toRecord maps the request onto the survey column names the cleaner
// was fitted on.
func toRecord(req *PredictionRequest) survey.Record {
	return survey.Record{
		"Age":                       strconv.FormatFloat(*req.Age, 'f', -1, 64),
		"Gender":                    req.Gender,
		"family_history":            req.FamilyHistory,
		"work_interfere":            req.WorkInterfere,
		"no_employees":              req.NoEmployees,
		"remote_work":               req.RemoteWork,
		"tech_company":              req.TechCompany,
		"benefits":                  req.Benefits,
		"care_options":              req.CareOptions,
		"wellness_program":          req.WellnessProgram,
		"seek_help":                 req.SeekHelp,
		"anonymity":                 req.Anonymity,
		"leave":                     req.Leave,
		"mental_health_consequence": req.MentalHealthConsequence,
		"phys_health_consequence":   req.PhysHealthConsequence,
		"coworkers":                 req.Coworkers,
		"supervisor":                req.Supervisor,
		"mental_health_interview":   req.MentalHealthInterview,
		"phys_health_interview":     req.PhysHealthInterview,
		"mental_vs_physical":        req.MentalVsPhysical,
		"obs_consequence":           req.ObsConsequence,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
