// Package engine defines the scene engine the control plane drives, plus a
// headless implementation that understands model3.json manifests.
//
// Engine and Overlay implementations are not safe for concurrent use; they are
// only ever called from the owner loop.
package engine

import (
	"errors"
	"time"

	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/settings"
)

var (
	// ErrNotLoaded is returned when an operation needs a loaded model.
	ErrNotLoaded = errors.New("no model loaded")
	// ErrUnknownExpression is returned for an expression id the model lacks.
	ErrUnknownExpression = errors.New("expression not found")
	// ErrUnknownMotion is returned for a motion id the model lacks.
	ErrUnknownMotion = errors.New("motion not found")
	// ErrUnsupported is returned for acknowledged but unimplemented modes.
	ErrUnsupported = errors.New("unsupported")
)

// Expression is one expression exposed by the loaded model.
type Expression struct {
	ID    string `json:"expression_id"`
	Group string `json:"group"`
}

// Motion is one motion exposed by the loaded model.
type Motion struct {
	ID    string `json:"motion_id"`
	Group string `json:"group"`
}

// Inventory lists what the loaded model can do.
type Inventory struct {
	Expressions []Expression
	Motions     []Motion
}

// Priority orders concurrent motions.
type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityMid  Priority = "mid"
	PriorityHigh Priority = "high"
)

// Engine is the single-threaded scene engine.
type Engine interface {
	// Load replaces the current model. On error no model is loaded.
	Load(desc catalog.Descriptor) (Inventory, error)
	ApplyExpression(id string) error
	// PlayMotion starts a motion and returns an id for this playback.
	PlayMotion(id string, priority Priority, loop bool) (string, error)
	StopMotion()
	ApplyBehavior(b settings.Behavior)
	ApplyTransform(t settings.Transform)
	// Tick advances time-based animation.
	Tick(dt time.Duration)
}

// Overlay applies window compositing settings.
type Overlay interface {
	Apply(o settings.Overlay) error
}
