package handlers

import (
	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/engine"
	"github.com/bhandras/avatarctl/internal/settings"
)

// Optional request fields are pre-populated with their defaults before
// binding, so omitting them keeps the default.

// ModelSwitchRequest is the body of POST /v1/model/switch.
type ModelSwitchRequest struct {
	ModelID string `json:"model_id" binding:"required"`
	Force   bool   `json:"force"`
}

// ExpressionApplyRequest is the body of POST /v1/expression/apply.
type ExpressionApplyRequest struct {
	ExpressionID string `json:"expression_id" binding:"required"`
	FadeMs       int    `json:"fade_ms" binding:"gte=0"`
}

// MotionPlayRequest is the body of POST /v1/motion/play. Priority defaults to mid.
type MotionPlayRequest struct {
	MotionID string `json:"motion_id" binding:"required"`
	Priority string `json:"priority" binding:"omitempty,oneof=low mid high"`
	Loop     bool   `json:"loop"`
	FadeMs   int    `json:"fade_ms" binding:"gte=0"`
}

// BehaviorAutoRequest is the body of POST /v1/behavior/auto.
type BehaviorAutoRequest struct {
	Blink      bool    `json:"blink"`
	Breath     bool    `json:"breath"`
	BlinkGain  float64 `json:"blink_gain" binding:"gte=0"`
	BreathGain float64 `json:"breath_gain" binding:"gte=0"`
}

func newBehaviorAutoRequest() BehaviorAutoRequest {
	d := settings.DefaultBehavior()
	return BehaviorAutoRequest{Blink: d.Blink, Breath: d.Breath, BlinkGain: d.BlinkGain, BreathGain: d.BreathGain}
}

func (r BehaviorAutoRequest) toSettings() settings.Behavior {
	return settings.Behavior{Blink: r.Blink, Breath: r.Breath, BlinkGain: r.BlinkGain, BreathGain: r.BreathGain}
}

// TransformRequest is the body of POST /v1/transform.
type TransformRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Scale   float64 `json:"scale" binding:"gt=0"`
	Framing string  `json:"framing" binding:"omitempty,oneof=full bustup"`
}

func newTransformRequest() TransformRequest {
	d := settings.DefaultTransform()
	return TransformRequest{X: d.X, Y: d.Y, Scale: d.Scale, Framing: d.Framing}
}

func (r TransformRequest) toSettings() settings.Transform {
	return settings.Transform{X: r.X, Y: r.Y, Scale: r.Scale, Framing: r.Framing}
}

// OverlayRequest accepts mode "native" even though no engine supports it; the
// overlay itself rejects it as unsupported.
type OverlayRequest struct {
	Transparent    bool    `json:"transparent"`
	Mode           string  `json:"mode" binding:"omitempty,oneof=chromakey native"`
	AlwaysOnTop    bool    `json:"always_on_top"`
	ClickThrough   bool    `json:"click_through"`
	Opacity        float64 `json:"opacity" binding:"gte=0,lte=1"`
	ChromakeyColor string  `json:"chromakey_color"`
}

func newOverlayRequest() OverlayRequest {
	d := settings.DefaultOverlay()
	return OverlayRequest{
		Transparent:    d.Transparent,
		Mode:           d.Mode,
		AlwaysOnTop:    d.AlwaysOnTop,
		ClickThrough:   d.ClickThrough,
		Opacity:        d.Opacity,
		ChromakeyColor: d.ChromakeyColor,
	}
}

func (r OverlayRequest) toSettings() settings.Overlay {
	return settings.Overlay{
		Transparent:    r.Transparent,
		Mode:           r.Mode,
		AlwaysOnTop:    r.AlwaysOnTop,
		ClickThrough:   r.ClickThrough,
		Opacity:        r.Opacity,
		ChromakeyColor: r.ChromakeyColor,
	}
}

// HealthResponse answers GET /v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ModelsResponse lists the catalog.
type ModelsResponse struct {
	Models []catalog.Descriptor `json:"models"`
}

// ModelStatusResponse reports the switch state. LastError is null unless the
// last switch failed.
type ModelStatusResponse struct {
	State     string  `json:"state"`
	ModelID   string  `json:"model_id"`
	LastError *string `json:"last_error"`
}

// ModelSwitchStateResponse acknowledges an accepted switch.
type ModelSwitchStateResponse struct {
	State   string `json:"state"`
	ModelID string `json:"model_id"`
}

// ExpressionsResponse lists the loaded model's expressions.
type ExpressionsResponse struct {
	Expressions []engine.Expression `json:"expressions"`
}

// MotionsResponse lists the loaded model's motions.
type MotionsResponse struct {
	Motions []engine.Motion `json:"motions"`
}

// ExpressionApplyResponse confirms an applied expression.
type ExpressionApplyResponse struct {
	Applied      bool   `json:"applied"`
	ExpressionID string `json:"expression_id"`
}

// MotionPlayResponse confirms a started motion.
type MotionPlayResponse struct {
	Started  bool   `json:"started"`
	MotionID string `json:"motion_id"`
	PlayID   string `json:"play_id"`
}

// MotionStopResponse confirms that motions were stopped.
type MotionStopResponse struct {
	Stopped bool `json:"stopped"`
}

// SettingsSaveResponse reports where the snapshot was saved.
type SettingsSaveResponse struct {
	Saved bool   `json:"saved"`
	Path  string `json:"path"`
}

// SettingsLoadResponse confirms a settings reload.
type SettingsLoadResponse struct {
	Loaded bool `json:"loaded"`
}

// AcceptedResponse acknowledges a request that has no further effect.
type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}
