package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kubewise/kubewise/internal/agent"
	"github.com/kubewise/kubewise/internal/cost"
)

type queryRequest struct {
	Prompt    string `json:"prompt"`
	ClusterID string `json:"cluster_id,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Response      string          `json:"response"`
	Analysis      *agent.Analysis `json:"analysis,omitempty"`
	Suggestions   []string        `json:"suggestions"`
	Confidence    float64         `json:"confidence"`
	ExecutionTime float64         `json:"execution_time"`
	SessionID     string          `json:"session_id"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    s.cfg.App.Name,
		"version": s.cfg.App.Version,
		"status":  "operational",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	llmStatus := "unavailable"
	if s.deps.Providers != nil && len(s.deps.Providers()) > 0 {
		llmStatus = "healthy"
	}

	k8sStatus := "unavailable"
	if s.deps.ClusterCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.ClusterCheck(ctx); err == nil {
			k8sStatus = "healthy"
		} else {
			s.logger.Warning("Kubernetes health check failed: %v", err)
		}
	}

	agentStatus := "healthy"
	if llmStatus != "healthy" {
		agentStatus = "unavailable"
	}

	status := "healthy"
	if llmStatus != "healthy" || k8sStatus != "healthy" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"version":   s.cfg.App.Version,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]string{
			"llm":        llmStatus,
			"kubernetes": k8sStatus,
			"agent":      agentStatus,
		},
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	s.logger.Info("Received query in namespace %s", req.Namespace)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Agent.QueryTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.deps.Agent.Query(ctx, agent.Request{
		Query:     req.Prompt,
		Namespace: req.Namespace,
		SessionID: req.SessionID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Query processing failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Response:      result.Response,
		Analysis:      &result.Analysis,
		Suggestions:   result.Suggestions,
		Confidence:    0.9,
		ExecutionTime: time.Since(start).Seconds(),
		SessionID:     result.SessionID,
	})
}

func (s *Server) handleDiagnosePod(w http.ResponseWriter, r *http.Request) {
	podName := r.URL.Query().Get("pod_name")
	if podName == "" {
		writeError(w, http.StatusBadRequest, "pod_name is required")
		return
	}
	namespace := r.URL.Query().Get("namespace")

	result := s.deps.Diagnostics.DiagnosePod(r.Context(), podName, namespace)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleParseFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Filters.Parse(r.Context(), req.Query))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	namespace := mux.Vars(r)["namespace"]
	writeJSON(w, http.StatusOK, s.deps.Optimizer.Recommendations(r.Context(), namespace))
}

func (s *Server) handleCostAllocation(w http.ResponseWriter, r *http.Request) {
	cluster := r.URL.Query().Get("cluster")
	if cluster == "" {
		writeError(w, http.StatusBadRequest, "cluster is required")
		return
	}
	window := r.URL.Query().Get("window")
	node := r.URL.Query().Get("node")

	allocations, err := s.deps.Cost.Allocations(r.Context(), cluster, window, node)
	if err != nil {
		writeError(w, costStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cluster":     cluster,
		"allocations": allocations,
	})
}

func (s *Server) handleCostReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cluster string `json:"cluster"`
		Window  string `json:"window,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Cluster == "" {
		writeError(w, http.StatusBadRequest, "cluster is required")
		return
	}

	report, err := s.deps.Advisor.GenerateReport(r.Context(), req.Cluster, req.Window)
	if err != nil {
		writeError(w, costStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func costStatus(err error) int {
	if errors.Is(err, cost.ErrUnknownCluster) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
