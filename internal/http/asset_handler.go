package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"wisefido-asset/internal/cache"
	"wisefido-asset/internal/domain"
	"wisefido-asset/internal/ledger"
	"wisefido-asset/internal/registry"
)

// LocationBoard 按位置分组的实时看板（cache.StatusCache 实现）
type LocationBoard interface {
	Locations(ctx context.Context) (map[string][]cache.Snapshot, error)
}

// AssetHandler 资产登记与查询
type AssetHandler struct {
	registry registry.Registry
	ledger   *ledger.Ledger
	board    LocationBoard // 可为 nil，此时从资产表汇总
	logger   *zap.Logger
}

func NewAssetHandler(reg registry.Registry, l *ledger.Ledger, board LocationBoard, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{registry: reg, ledger: l, board: board, logger: logger}
}

// createAssetRequest 登记请求体
type createAssetRequest struct {
	AssetCode              string   `json:"asset_code"`
	SerialNumber           string   `json:"serial_number"`
	Name                   string   `json:"name"`
	Category               string   `json:"category"`
	Ownership              string   `json:"ownership"`
	Location               string   `json:"location"`
	Manufacturer           string   `json:"manufacturer"`
	Vendor                 *string  `json:"vendor"`
	RentalRate             *float64 `json:"rental_rate"`
	PurchaseDate           string   `json:"purchase_date"` // YYYY-MM-DD 或 RFC3339
	ExpectedLifespanMonths int      `json:"expected_lifespan_months"`
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: bad purchase_date %q", domain.ErrInvalidInput, raw)
}

func assetFilterFromQuery(r *http.Request) domain.AssetFilter {
	q := r.URL.Query()
	var f domain.AssetFilter
	for _, s := range splitList(q.Get("status")) {
		f.Statuses = append(f.Statuses, domain.AssetStatus(s))
	}
	f.Categories = splitList(q.Get("category"))
	f.Ownership = domain.Ownership(strings.TrimSpace(q.Get("ownership")))
	f.Location = strings.TrimSpace(q.Get("location"))
	f.Search = strings.TrimSpace(q.Get("search"))
	return f
}

// List GET /asset/api/v1/assets
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.registry.List(r.Context(), assetFilterFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkList(items))
}

// Create POST /asset/api/v1/assets
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createAssetRequest
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	purchase, err := parseDate(body.PurchaseDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	a, err := h.registry.Register(r.Context(), registry.RegisterRequest{
		AssetCode:              body.AssetCode,
		SerialNumber:           body.SerialNumber,
		Name:                   body.Name,
		Category:               body.Category,
		Ownership:              domain.Ownership(strings.ToLower(strings.TrimSpace(body.Ownership))),
		Location:               body.Location,
		Manufacturer:           body.Manufacturer,
		Vendor:                 body.Vendor,
		RentalRate:             body.RentalRate,
		PurchaseDate:           purchase,
		ExpectedLifespanMonths: body.ExpectedLifespanMonths,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}

// Get GET /asset/api/v1/assets/{code}，附带当前会话
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.registry.Get(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	active, err := h.ledger.Active(r.Context(), a.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"asset": a, "active_session": active}))
}

// Delete DELETE /asset/api/v1/assets/{code}
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), mux.Vars(r)["code"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// Associate POST /asset/api/v1/assets/{code}/associate
func (h *AssetHandler) Associate(w http.ResponseWriter, r *http.Request) {
	h.respondAsset(w, func(ctx context.Context, code string) (*domain.Asset, error) {
		return h.registry.Associate(ctx, code)
	}, r)
}

// Retire POST /asset/api/v1/assets/{code}/retire
func (h *AssetHandler) Retire(w http.ResponseWriter, r *http.Request) {
	h.respondAsset(w, func(ctx context.Context, code string) (*domain.Asset, error) {
		return h.registry.Retire(ctx, code)
	}, r)
}

// Transition POST /asset/api/v1/assets/{code}/transition {"status": "..."}
func (h *AssetHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	h.respondAsset(w, func(ctx context.Context, code string) (*domain.Asset, error) {
		return h.registry.Transition(ctx, code, domain.AssetStatus(strings.TrimSpace(body.Status)))
	}, r)
}

func (h *AssetHandler) respondAsset(w http.ResponseWriter, fn func(context.Context, string) (*domain.Asset, error), r *http.Request) {
	a, err := fn(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(a))
}

// Scan GET /asset/api/v1/assets/{code}/scan
func (h *AssetHandler) Scan(w http.ResponseWriter, r *http.Request) {
	res, err := h.registry.Scan(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Label GET /asset/api/v1/assets/{code}/label
func (h *AssetHandler) Label(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	payload, err := h.registry.Label(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"asset_code": code, "payload": payload}))
}

// Sessions GET /asset/api/v1/assets/{code}/sessions?limit=10
func (h *AssetHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	a, err := h.registry.Get(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items, err := h.ledger.History(r.Context(), a.ID, parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OkList(items))
}

// Export GET /asset/api/v1/assets/export
func (h *AssetHandler) Export(w http.ResponseWriter, r *http.Request) {
	items, err := h.registry.List(r.Context(), assetFilterFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	data, err := GenerateInventoryExport(items)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	filename := fmt.Sprintf("asset_inventory_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Locations GET /asset/api/v1/locations
func (h *AssetHandler) Locations(w http.ResponseWriter, r *http.Request) {
	if h.board != nil {
		board, err := h.board.Locations(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, Ok(board))
			return
		}
		h.logger.Warn("Location board unavailable, falling back to store", zap.Error(err))
	}

	items, err := h.registry.List(r.Context(), domain.AssetFilter{
		Statuses: []domain.AssetStatus{
			domain.StatusUnassociated, domain.StatusAvailable, domain.StatusInUse, domain.StatusMaintenance,
		},
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	board := make(map[string][]cache.Snapshot)
	for _, a := range items {
		board[a.Location] = append(board[a.Location], cache.NewSnapshot(a))
	}
	for loc := range board {
		list := board[loc]
		sort.Slice(list, func(i, j int) bool { return list[i].AssetCode < list[j].AssetCode })
	}
	writeJSON(w, http.StatusOK, Ok(board))
}
