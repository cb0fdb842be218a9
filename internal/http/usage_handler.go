package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/events"
	"wisefido-asset/internal/ledger"
	"wisefido-asset/internal/registry"
)

// UsageHandler 人工开始/结束使用
type UsageHandler struct {
	router   *events.Router
	ledger   *ledger.Ledger
	registry registry.Registry
	logger   *zap.Logger
}

func NewUsageHandler(router *events.Router, l *ledger.Ledger, reg registry.Registry, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{router: router, ledger: l, registry: reg, logger: logger}
}

type startUsageRequest struct {
	AssetCode             string   `json:"asset_code"`
	ExpectedDurationHours *float64 `json:"expected_duration_hours"`
	SubjectRef            *string  `json:"subject_ref"`
	Reason                string   `json:"reason"`
	Notes                 string   `json:"notes"`
}

// Start POST /usage/api/v1/sessions
func (h *UsageHandler) Start(w http.ResponseWriter, r *http.Request) {
	op, ok := OperatorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("operator identity required"))
		return
	}
	var body startUsageRequest
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if strings.TrimSpace(body.AssetCode) == "" {
		badRequest(w, "asset_code is required")
		return
	}

	res, err := h.router.Start(r.Context(), events.StartRequest{
		AssetCode:             strings.TrimSpace(body.AssetCode),
		Operator:              op,
		ExpectedDurationHours: body.ExpectedDurationHours,
		SubjectRef:            body.SubjectRef,
		Reason:                body.Reason,
		Notes:                 body.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Stop POST /usage/api/v1/sessions/{id}/stop
func (h *UsageHandler) Stop(w http.ResponseWriter, r *http.Request) {
	op, ok := OperatorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("operator identity required"))
		return
	}
	res, err := h.router.Stop(r.Context(), mux.Vars(r)["id"], op)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// List GET /usage/api/v1/sessions?status=active&asset_code=...&limit=...
func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.SessionFilter{
		Status: domain.SessionStatus(strings.TrimSpace(q.Get("status"))),
		Limit:  parseInt(q.Get("limit"), 0),
	}
	if code := strings.TrimSpace(q.Get("asset_code")); code != "" {
		a, err := h.registry.Get(r.Context(), code)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		filter.AssetID = a.ID
	}

	items, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkList(items))
}
