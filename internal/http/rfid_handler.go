package httpapi

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"wisefido-asset/internal/events"
)

// RFIDHandler 读卡器 HTTP 上报入口
type RFIDHandler struct {
	router *events.Router
	logger *zap.Logger
}

func NewRFIDHandler(router *events.Router, logger *zap.Logger) *RFIDHandler {
	return &RFIDHandler{router: router, logger: logger}
}

// PostEvent POST /rfid/api/v1/events
// 格式错误与未知资产均返回 404
func (h *RFIDHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		badRequest(w, "invalid body")
		return
	}
	sig, err := events.DecodeSignal(raw)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.router.HandleLocationSignal(r.Context(), sig)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
