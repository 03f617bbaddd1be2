package handlers

import (
	"errors"

	"github.com/bhandras/avatarctl/internal/api/envelope"
	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/session"
	"github.com/bhandras/avatarctl/internal/version"
	"github.com/gin-gonic/gin"
)

// Health handles GET /v1/health
func (h *Handler) Health(c *gin.Context) {
	envelope.OK(c, HealthResponse{Status: "ok", Version: version.Version()})
}

// ListModels handles GET /v1/models
func (h *Handler) ListModels(c *gin.Context) {
	envelope.OK(c, ModelsResponse{Models: h.catalog.Scan()})
}

// ModelStatus handles GET /v1/model/status
func (h *Handler) ModelStatus(c *gin.Context) {
	envelope.OK(c, statusResponse(h.session.Snapshot()))
}

func statusResponse(snap session.Snapshot) ModelStatusResponse {
	resp := ModelStatusResponse{
		State:   string(snap.State),
		ModelID: snap.ModelID(),
	}
	if snap.LastError != "" {
		lastErr := snap.LastError
		resp.LastError = &lastErr
	}
	return resp
}

// SwitchModel handles POST /v1/model/switch
//
// The reply is sent as soon as the switch is queued; clients poll
// /v1/model/status (or watch the stream) for completion.
func (h *Handler) SwitchModel(c *gin.Context) {
	var req ModelSwitchRequest
	if !bindJSON(c, &req) {
		return
	}

	desc, ok := catalog.Find(h.catalog, req.ModelID)
	if !ok {
		envelope.Fail(c, envelope.NotFound("model not found").WithDetails(req.ModelID))
		return
	}

	if err := h.viewer.RequestSwitch(desc, req.Force); err != nil {
		if errors.Is(err, session.ErrBusy) {
			envelope.Fail(c, envelope.Conflict("model is loading").
				WithDetails("retry later or set force"))
			return
		}
		envelope.Fail(c, classify(err))
		return
	}

	envelope.OK(c, ModelSwitchStateResponse{
		State:   string(session.StateLoading),
		ModelID: desc.ID,
	})
}
