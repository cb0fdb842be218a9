package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/evaluator"
	"wisefido-asset/internal/registry"
)

// AlertHandler 告警查询、解决与巡检
type AlertHandler struct {
	evaluator *evaluator.Evaluator
	registry  registry.Registry
	hub       *AlertHub
	logger    *zap.Logger
}

func NewAlertHandler(ev *evaluator.Evaluator, reg registry.Registry, hub *AlertHub, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{evaluator: ev, registry: reg, hub: hub, logger: logger}
}

// List GET /alert/api/v1/alerts?resolved=false&asset_code=...&type=overuse,inactivity
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AlertFilter{Limit: parseInt(q.Get("limit"), 0)}
	if raw := strings.TrimSpace(q.Get("resolved")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "resolved must be true or false")
			return
		}
		filter.Resolved = &v
	}
	for _, t := range splitList(q.Get("type")) {
		filter.Types = append(filter.Types, domain.AlertType(t))
	}
	if code := strings.TrimSpace(q.Get("asset_code")); code != "" {
		a, err := h.registry.Get(r.Context(), code)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		filter.AssetID = a.ID
	}

	items, err := h.evaluator.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkList(items))
}

// Resolve POST /alert/api/v1/alerts/{id}/resolve
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	op, _ := OperatorFrom(r.Context())
	alert, err := h.evaluator.Resolve(r.Context(), mux.Vars(r)["id"], op.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert))
}

// Sweep POST /alert/api/v1/alerts/sweep
func (h *AlertHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.evaluator.Sweep(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Feed GET /alert/api/v1/ws
func (h *AlertHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}
