package settings

// Snapshot is the durable, user-visible configuration of the viewer.
type Snapshot struct {
	APIKeyRequired bool      `json:"api_key_required" yaml:"api_key_required"`
	APIKey         string    `json:"api_key" yaml:"api_key"`
	ModelID        string    `json:"model_id" yaml:"model_id"`
	Transform      Transform `json:"transform" yaml:"transform"`
	Overlay        Overlay   `json:"overlay" yaml:"overlay"`
	Behavior       Behavior  `json:"behavior" yaml:"behavior"`
	LastExpression string    `json:"last_expression" yaml:"last_expression"`
	LastMotion     string    `json:"last_motion" yaml:"last_motion"`
}

// Transform positions and scales the model.
type Transform struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Scale   float64 `json:"scale" yaml:"scale"`
	Framing string  `json:"framing" yaml:"framing"`
}

// Overlay controls how the viewer window composites over the desktop.
type Overlay struct {
	Transparent    bool    `json:"transparent" yaml:"transparent"`
	Mode           string  `json:"mode" yaml:"mode"`
	AlwaysOnTop    bool    `json:"always_on_top" yaml:"always_on_top"`
	ClickThrough   bool    `json:"click_through" yaml:"click_through"`
	Opacity        float64 `json:"opacity" yaml:"opacity"`
	ChromakeyColor string  `json:"chromakey_color" yaml:"chromakey_color"`
}

// Behavior toggles idle animation.
type Behavior struct {
	Blink      bool    `json:"blink" yaml:"blink"`
	Breath     bool    `json:"breath" yaml:"breath"`
	BlinkGain  float64 `json:"blink_gain" yaml:"blink_gain"`
	BreathGain float64 `json:"breath_gain" yaml:"breath_gain"`
}

// Framing and overlay mode values.
const (
	FramingFull   = "full"
	FramingBustup = "bustup"

	OverlayModeChromakey = "chromakey"
	OverlayModeNative    = "native"

	DefaultChromakeyColor = "#00FF00"
)

// DefaultTransform returns the identity transform with full-body framing.
func DefaultTransform() Transform {
	return Transform{Scale: 1, Framing: FramingFull}
}

// DefaultOverlay returns a transparent chroma-key overlay.
func DefaultOverlay() Overlay {
	return Overlay{
		Transparent:    true,
		Mode:           OverlayModeChromakey,
		Opacity:        1,
		ChromakeyColor: DefaultChromakeyColor,
	}
}

// DefaultBehavior enables blinking and breathing at unit gain.
func DefaultBehavior() Behavior {
	return Behavior{Blink: true, Breath: true, BlinkGain: 1, BreathGain: 1}
}

// Defaults returns the snapshot used when nothing has been persisted.
func Defaults() Snapshot {
	return Snapshot{
		Transform: DefaultTransform(),
		Overlay:   DefaultOverlay(),
		Behavior:  DefaultBehavior(),
	}
}
