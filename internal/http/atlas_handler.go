package httpapi

import (
	"net/http"

	"wisefido-asset/internal/atlas"
)

// AtlasHandler 设备分类知识库
type AtlasHandler struct {
	atlas *atlas.Atlas
}

func NewAtlasHandler(a *atlas.Atlas) *AtlasHandler {
	return &AtlasHandler{atlas: a}
}

// Categories GET /atlas/api/v1/categories
func (h *AtlasHandler) Categories(w http.ResponseWriter, r *http.Request) {
	entries := h.atlas.Entries()
	writeJSON(w, http.StatusOK, OkList(entries))
}
