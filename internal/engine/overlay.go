package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/bhandras/avatarctl/internal/settings"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

var green = RGB{G: 0xFF}

// HeadlessOverlay records the applied overlay settings.
type HeadlessOverlay struct {
	applied    settings.Overlay
	background RGB
}

var _ Overlay = (*HeadlessOverlay)(nil)

// NewHeadlessOverlay creates an overlay with a green key color.
func NewHeadlessOverlay() *HeadlessOverlay {
	return &HeadlessOverlay{background: green}
}

// Apply implements Overlay. Native compositing is not available in this build.
func (o *HeadlessOverlay) Apply(s settings.Overlay) error {
	if s.Mode == settings.OverlayModeNative {
		return fmt.Errorf("native mode is unsupported in this build: %w", ErrUnsupported)
	}

	color, ok := parseHexColor(s.ChromakeyColor)
	if !ok {
		color = green
	}
	o.applied = s
	o.background = color
	logger.Infof("[overlay] set mode=%s, chromakey=%s, topmost=%t, click=%t, opacity=%g",
		s.Mode, s.ChromakeyColor, s.AlwaysOnTop, s.ClickThrough, s.Opacity)
	return nil
}

// Background returns the current key color.
func (o *HeadlessOverlay) Background() RGB { return o.background }

// parseHexColor accepts #RRGGBB or #RGB.
func parseHexColor(s string) (RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}
