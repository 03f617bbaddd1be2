package handlers

import (
	"github.com/bhandras/avatarctl/internal/api/envelope"
	"github.com/gin-gonic/gin"
)

// SetBehavior handles POST /v1/behavior/auto
func (h *Handler) SetBehavior(c *gin.Context) {
	req := newBehaviorAutoRequest()
	if !bindJSON(c, &req) {
		return
	}
	h.confirm(c, func() (any, error) {
		return h.viewer.SetBehavior(req.toSettings()), nil
	})
}

// SetTransform handles POST /v1/transform
func (h *Handler) SetTransform(c *gin.Context) {
	req := newTransformRequest()
	if !bindJSON(c, &req) {
		return
	}
	h.confirm(c, func() (any, error) {
		return h.viewer.SetTransform(req.toSettings()), nil
	})
}

// SetOverlay handles POST /v1/window/overlay
func (h *Handler) SetOverlay(c *gin.Context) {
	if !h.requireReady(c, "model is loading") {
		return
	}
	req := newOverlayRequest()
	if !bindJSON(c, &req) {
		return
	}
	h.confirm(c, func() (any, error) {
		return h.viewer.SetOverlay(req.toSettings())
	})
}

// SaveSettings handles POST /v1/settings/save
func (h *Handler) SaveSettings(c *gin.Context) {
	h.confirm(c, func() (any, error) {
		path, err := h.viewer.SaveSettings()
		if err != nil {
			return nil, envelope.Internal(err.Error())
		}
		return SettingsSaveResponse{Saved: true, Path: path}, nil
	})
}

// LoadSettings handles POST /v1/settings/load
func (h *Handler) LoadSettings(c *gin.Context) {
	h.confirm(c, func() (any, error) {
		h.viewer.LoadSettings()
		return SettingsLoadResponse{Loaded: true}, nil
	})
}

// LipSync handles POST /v1/lipsync/volume and /v1/lipsync/viseme. Lip sync is
// acknowledged but not driven yet.
func (h *Handler) LipSync(c *gin.Context) {
	envelope.OK(c, AcceptedResponse{Accepted: true})
}
