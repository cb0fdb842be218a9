package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	MethodsGetOnly    = []string{http.MethodGet}
	MethodsPostOnly   = []string{http.MethodPost}
	MethodsDeleteOnly = []string{http.MethodDelete}
)

// Handlers 路由依赖
type Handlers struct {
	Assets *AssetHandler
	Usage  *UsageHandler
	Alerts *AlertHandler
	RFID   *RFIDHandler
	Atlas  *AtlasHandler
	Issuer *TokenIssuer
	Logger *zap.Logger
}

// NewRouter 注册全部路由
func NewRouter(h Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(RecoveryMiddleware(h.Logger), LoggingMiddleware(h.Logger))

	// 公开
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	}).Methods(MethodsGetOnly...)
	r.HandleFunc("/rfid/api/v1/events", h.RFID.PostEvent).Methods(MethodsPostOnly...)

	// 需要认证
	api := r.NewRoute().Subrouter()
	api.Use(AuthMiddleware(h.Issuer))

	// assets（export / locations 先于 {code} 注册）
	api.HandleFunc("/asset/api/v1/assets", h.Assets.List).Methods(MethodsGetOnly...)
	api.HandleFunc("/asset/api/v1/assets", h.Assets.Create).Methods(MethodsPostOnly...)
	api.HandleFunc("/asset/api/v1/assets/export", h.Assets.Export).Methods(MethodsGetOnly...)
	api.HandleFunc("/asset/api/v1/locations", h.Assets.Locations).Methods(MethodsGetOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}", h.Assets.Get).Methods(MethodsGetOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}", h.Assets.Delete).Methods(MethodsDeleteOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}/associate", h.Assets.Associate).Methods(MethodsPostOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}/retire", h.Assets.Retire).Methods(MethodsPostOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}/transition", h.Assets.Transition).Methods(MethodsPostOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}/scan", h.Assets.Scan).Methods(MethodsGetOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}/label", h.Assets.Label).Methods(MethodsGetOnly...)
	api.HandleFunc("/asset/api/v1/assets/{code}/sessions", h.Assets.Sessions).Methods(MethodsGetOnly...)

	// usage
	api.HandleFunc("/usage/api/v1/sessions", h.Usage.Start).Methods(MethodsPostOnly...)
	api.HandleFunc("/usage/api/v1/sessions", h.Usage.List).Methods(MethodsGetOnly...)
	api.HandleFunc("/usage/api/v1/sessions/{id}/stop", h.Usage.Stop).Methods(MethodsPostOnly...)

	// alerts
	api.HandleFunc("/alert/api/v1/alerts", h.Alerts.List).Methods(MethodsGetOnly...)
	api.HandleFunc("/alert/api/v1/alerts/sweep", h.Alerts.Sweep).Methods(MethodsPostOnly...)
	api.HandleFunc("/alert/api/v1/alerts/{id}/resolve", h.Alerts.Resolve).Methods(MethodsPostOnly...)
	api.HandleFunc("/alert/api/v1/ws", h.Alerts.Feed).Methods(MethodsGetOnly...)

	// atlas
	api.HandleFunc("/atlas/api/v1/categories", h.Atlas.Categories).Methods(MethodsGetOnly...)

	return r
}
