package engine

import (
	"math"
	"time"

	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/bhandras/avatarctl/internal/settings"
	"github.com/google/uuid"
)

const bustupScale = 1.3

// Pose is the computed presentation state of the loaded model.
type Pose struct {
	X, Y  float64
	Scale float64

	BlinkEnabled   bool
	BlinkTimescale float64

	// Breath is the current ParamBreath value in [0, 1].
	Breath float64

	Expression string
	Motion     string
	MotionLoop bool
	Priority   Priority
}

// Headless is an Engine that tracks model state without rendering.
type Headless struct {
	loaded    bool
	modelID   string
	inventory Inventory

	behavior  settings.Behavior
	transform settings.Transform

	breathTime float64
	pose       Pose
}

var _ Engine = (*Headless)(nil)

// NewHeadless creates an engine with default behavior and transform.
func NewHeadless() *Headless {
	h := &Headless{}
	h.ApplyBehavior(settings.DefaultBehavior())
	h.ApplyTransform(settings.DefaultTransform())
	return h
}

// Load implements Engine.
func (h *Headless) Load(desc catalog.Descriptor) (Inventory, error) {
	h.unload()

	inv, err := readInventory(desc.ManifestPath)
	if err != nil {
		logger.Errorf("[engine] switch model %s failed: %v", desc.ID, err)
		return Inventory{}, err
	}

	h.loaded = true
	h.modelID = desc.ID
	h.inventory = inv
	h.ApplyTransform(h.transform)
	h.ApplyBehavior(h.behavior)
	logger.Infof("[engine] loaded %s (%d expressions, %d motions)",
		desc.ID, len(inv.Expressions), len(inv.Motions))
	return inv, nil
}

// ModelID returns the loaded model id, empty if none.
func (h *Headless) ModelID() string { return h.modelID }

// Pose returns the current presentation state.
func (h *Headless) Pose() Pose { return h.pose }

// ApplyExpression implements Engine.
func (h *Headless) ApplyExpression(id string) error {
	if !h.loaded {
		return ErrNotLoaded
	}
	for _, e := range h.inventory.Expressions {
		if e.ID == id {
			h.pose.Expression = id
			return nil
		}
	}
	return ErrUnknownExpression
}

// PlayMotion implements Engine.
func (h *Headless) PlayMotion(id string, priority Priority, loop bool) (string, error) {
	if !h.loaded {
		return "", ErrNotLoaded
	}
	found := false
	for _, m := range h.inventory.Motions {
		if m.ID == id {
			found = true
			break
		}
	}
	if !found {
		return "", ErrUnknownMotion
	}

	switch priority {
	case PriorityLow, PriorityHigh:
	default:
		priority = PriorityMid
	}
	h.pose.Motion = id
	h.pose.MotionLoop = loop
	h.pose.Priority = priority
	return uuid.NewString(), nil
}

// StopMotion implements Engine.
func (h *Headless) StopMotion() {
	h.pose.Motion = ""
	h.pose.MotionLoop = false
	h.pose.Priority = ""
}

// ApplyBehavior implements Engine.
func (h *Headless) ApplyBehavior(b settings.Behavior) {
	h.behavior = b
	h.pose.BlinkEnabled = b.Blink
	h.pose.BlinkTimescale = clamp(10*b.BlinkGain, 1, 20)
	if !b.Breath {
		h.pose.Breath = 0
	}
}

// ApplyTransform implements Engine.
func (h *Headless) ApplyTransform(t settings.Transform) {
	h.transform = t
	if !h.loaded {
		return
	}
	scale := t.Scale
	if t.Framing == settings.FramingBustup {
		scale *= bustupScale
	}
	h.pose.X = t.X
	h.pose.Y = t.Y
	h.pose.Scale = scale
}

// Tick implements Engine. It drives the breathing parameter.
func (h *Headless) Tick(dt time.Duration) {
	if !h.loaded || !h.behavior.Breath {
		return
	}
	h.breathTime += dt.Seconds()
	gain := math.Max(0.01, h.behavior.BreathGain)
	breath := math.Sin(h.breathTime*1.8) * 0.25 * gain
	h.pose.Breath = clamp(breath, 0, 1)
}

func (h *Headless) unload() {
	h.loaded = false
	h.modelID = ""
	h.inventory = Inventory{}
	h.breathTime = 0
	h.pose = Pose{
		BlinkEnabled:   h.pose.BlinkEnabled,
		BlinkTimescale: h.pose.BlinkTimescale,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
