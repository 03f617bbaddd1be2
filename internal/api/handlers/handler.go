package handlers

import (
	"errors"
	"fmt"

	"github.com/bhandras/avatarctl/internal/api/envelope"
	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/dispatch"
	"github.com/bhandras/avatarctl/internal/engine"
	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/bhandras/avatarctl/internal/session"
	"github.com/bhandras/avatarctl/internal/viewer"
	"github.com/gin-gonic/gin"
)

// Handler serves the control API.
//
// Reads are answered on the request goroutine. Mutations are queued onto the
// owner loop; only the model switch replies before its command has run.
type Handler struct {
	session *session.Session
	queue   *dispatch.Queue
	catalog catalog.Scanner
	viewer  *viewer.Viewer
}

// NewHandler creates the API handler.
func NewHandler(sess *session.Session, queue *dispatch.Queue, scanner catalog.Scanner, v *viewer.Viewer) *Handler {
	return &Handler{
		session: sess,
		queue:   queue,
		catalog: scanner,
		viewer:  v,
	}
}

// NotFound handles unmatched routes.
func (h *Handler) NotFound(c *gin.Context) {
	envelope.Fail(c, envelope.NotFound("route not found").
		WithDetails(fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)))
}

// bindJSON decodes the request body into req and validates it, replying with
// invalid-request on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		envelope.Fail(c, envelope.InvalidRequest(err.Error()))
		return false
	}
	return true
}

// requireReady rejects the request while the model is not ready.
func (h *Handler) requireReady(c *gin.Context, message string) bool {
	if h.session.Ready() {
		return true
	}
	envelope.Fail(c, envelope.Conflict(message))
	return false
}

type reply struct {
	data any
	err  *envelope.Error
}

// confirm runs fn on the owner loop and writes whatever it returns. The
// request goroutine waits for the owner's next drain; if the client goes away
// first the command still runs and its reply is discarded.
func (h *Handler) confirm(c *gin.Context, fn func() (any, error)) {
	done := make(chan reply, 1)
	requestID := envelope.RequestID(c)

	h.queue.Enqueue(func() error {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: envelope.Internal(fmt.Sprint(r))}
				panic(r)
			}
		}()

		data, err := fn()
		if err != nil {
			apiErr := classify(err)
			done <- reply{err: apiErr}
			if apiErr.Code == envelope.CodeInternal {
				return fmt.Errorf("request %s: %w", requestID, err)
			}
			return nil
		}
		done <- reply{data: data}
		return nil
	})

	select {
	case r := <-done:
		if r.err != nil {
			envelope.Fail(c, r.err)
			return
		}
		envelope.OK(c, r.data)
	case <-c.Request.Context().Done():
		logger.Warnf("[api] request %s abandoned before the owner loop replied", requestID)
	}
}

// classify maps domain errors onto the API taxonomy.
func classify(err error) *envelope.Error {
	var apiErr *envelope.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, session.ErrBusy):
		return envelope.Conflict("model is loading")
	case errors.Is(err, engine.ErrNotLoaded):
		return envelope.Conflict("model not ready")
	case errors.Is(err, engine.ErrUnknownExpression):
		return envelope.NotFound("expression not found")
	case errors.Is(err, engine.ErrUnknownMotion):
		return envelope.NotFound("motion not found")
	case errors.Is(err, engine.ErrUnsupported):
		return envelope.Unsupported(err.Error())
	default:
		return envelope.Internal(err.Error())
	}
}
