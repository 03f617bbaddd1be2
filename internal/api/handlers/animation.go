package handlers

import (
	"github.com/bhandras/avatarctl/internal/api/envelope"
	"github.com/bhandras/avatarctl/internal/engine"
	"github.com/gin-gonic/gin"
)

const msgNotReady = "model not ready"

// ListExpressions handles GET /v1/expressions
func (h *Handler) ListExpressions(c *gin.Context) {
	if !h.requireReady(c, msgNotReady) {
		return
	}
	inv, ok := h.viewer.Inventory()
	if !ok {
		envelope.Fail(c, envelope.Conflict(msgNotReady))
		return
	}
	envelope.OK(c, ExpressionsResponse{Expressions: inv.Expressions})
}

// ListMotions handles GET /v1/motions
func (h *Handler) ListMotions(c *gin.Context) {
	if !h.requireReady(c, msgNotReady) {
		return
	}
	inv, ok := h.viewer.Inventory()
	if !ok {
		envelope.Fail(c, envelope.Conflict(msgNotReady))
		return
	}
	envelope.OK(c, MotionsResponse{Motions: inv.Motions})
}

// ApplyExpression handles POST /v1/expression/apply
func (h *Handler) ApplyExpression(c *gin.Context) {
	if !h.requireReady(c, msgNotReady) {
		return
	}
	var req ExpressionApplyRequest
	if !bindJSON(c, &req) {
		return
	}

	h.confirm(c, func() (any, error) {
		if err := h.viewer.ApplyExpression(req.ExpressionID); err != nil {
			return nil, err
		}
		return ExpressionApplyResponse{Applied: true, ExpressionID: req.ExpressionID}, nil
	})
}

// PlayMotion handles POST /v1/motion/play
func (h *Handler) PlayMotion(c *gin.Context) {
	if !h.requireReady(c, msgNotReady) {
		return
	}
	req := MotionPlayRequest{Priority: string(engine.PriorityMid)}
	if !bindJSON(c, &req) {
		return
	}
	if req.Priority == "" {
		req.Priority = string(engine.PriorityMid)
	}

	h.confirm(c, func() (any, error) {
		playID, err := h.viewer.PlayMotion(req.MotionID, engine.Priority(req.Priority), req.Loop)
		if err != nil {
			return nil, err
		}
		return MotionPlayResponse{Started: true, MotionID: req.MotionID, PlayID: playID}, nil
	})
}

// StopMotion handles POST /v1/motion/stop
func (h *Handler) StopMotion(c *gin.Context) {
	if !h.requireReady(c, msgNotReady) {
		return
	}
	h.confirm(c, func() (any, error) {
		h.viewer.StopMotion()
		return MotionStopResponse{Stopped: true}, nil
	})
}
