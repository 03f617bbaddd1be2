// Package viewer holds the owner-loop side of the control plane: the
// configuration snapshot and every call into the engine.
//
// Methods documented as owner-only must run inside a dispatch.Command (or
// before the owner loop starts). Inventory, APIKey and RequestSwitch are safe
// from any goroutine.
package viewer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/dispatch"
	"github.com/bhandras/avatarctl/internal/engine"
	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/bhandras/avatarctl/internal/session"
	"github.com/bhandras/avatarctl/internal/settings"
)

// Deps are the collaborators a Viewer drives.
type Deps struct {
	Session *session.Session
	Queue   *dispatch.Queue
	Engine  engine.Engine
	Overlay engine.Overlay
	Store   settings.Store
}

// authPolicy is the published copy of the snapshot's auth fields.
type authPolicy struct {
	required bool
	key      string
}

// Viewer owns the configuration snapshot and the engine.
type Viewer struct {
	session *session.Session
	queue   *dispatch.Queue
	engine  engine.Engine
	overlay engine.Overlay
	store   settings.Store

	// cfg is owner-only.
	cfg settings.Snapshot

	inventory atomic.Pointer[engine.Inventory]
	auth      atomic.Pointer[authPolicy]
}

// New creates a viewer and loads the persisted snapshot. Nothing is applied to
// the engine until Start.
func New(deps Deps) *Viewer {
	v := &Viewer{
		session: deps.Session,
		queue:   deps.Queue,
		engine:  deps.Engine,
		overlay: deps.Overlay,
		store:   deps.Store,
		cfg:     deps.Store.Load(),
	}
	v.publishAuth()
	return v
}

// Start applies the loaded snapshot and, if it names a model present in the
// catalog, accepts a forced switch to it. It must be called before the owner
// loop starts.
func (v *Viewer) Start(scanner catalog.Scanner) {
	v.applyConfig()
	if v.cfg.ModelID == "" {
		return
	}
	desc, ok := catalog.Find(scanner, v.cfg.ModelID)
	if !ok {
		logger.Warnf("[viewer] configured model %q not in catalog", v.cfg.ModelID)
		return
	}
	if err := v.RequestSwitch(desc, true); err != nil {
		logger.Warnf("[viewer] startup switch to %s rejected: %v", desc.ID, err)
	}
}

// RequestSwitch moves the session to loading for desc and queues the switch.
// The session is updated before the command is queued so that a status poll
// issued right after this returns observes the pending model.
func (v *Viewer) RequestSwitch(desc catalog.Descriptor, force bool) error {
	ticket, err := v.session.BeginSwitch(desc.ID, force)
	if err != nil {
		return err
	}
	v.queue.Enqueue(func() error {
		return v.SwitchModel(desc, ticket)
	})
	return nil
}

// SwitchModel loads desc into the engine and settles ticket. Owner-only.
func (v *Viewer) SwitchModel(desc catalog.Descriptor, ticket session.Ticket) error {
	inv, err := v.engine.Load(desc)
	if err != nil {
		v.inventory.Store(nil)
		v.session.FailSwitch(ticket, err)
		return fmt.Errorf("switch to %s: %w", desc.ID, err)
	}

	v.engine.ApplyTransform(v.cfg.Transform)
	v.engine.ApplyBehavior(v.cfg.Behavior)
	v.cfg.ModelID = desc.ID
	v.inventory.Store(&inv)
	v.session.CompleteSwitch(ticket, desc.ID)
	logger.Infof("[viewer] model switched: %s", desc.ID)
	return nil
}

// Inventory returns the expressions and motions of the loaded model.
func (v *Viewer) Inventory() (engine.Inventory, bool) {
	inv := v.inventory.Load()
	if inv == nil {
		return engine.Inventory{}, false
	}
	return *inv, true
}

// APIKey reports whether requests must carry an API key, and which.
func (v *Viewer) APIKey() (bool, string) {
	p := v.auth.Load()
	return p.required, p.key
}

// ApplyExpression applies expression id. Owner-only.
func (v *Viewer) ApplyExpression(id string) error {
	if err := v.engine.ApplyExpression(id); err != nil {
		return err
	}
	v.cfg.LastExpression = id
	return nil
}

// PlayMotion starts motion id and returns its play id. Owner-only.
func (v *Viewer) PlayMotion(id string, priority engine.Priority, loop bool) (string, error) {
	playID, err := v.engine.PlayMotion(id, priority, loop)
	if err != nil {
		return "", err
	}
	v.cfg.LastMotion = id
	return playID, nil
}

// StopMotion stops all motions. Owner-only.
func (v *Viewer) StopMotion() {
	v.engine.StopMotion()
}

// SetBehavior stores and applies b. Owner-only.
func (v *Viewer) SetBehavior(b settings.Behavior) settings.Behavior {
	v.cfg.Behavior = b
	v.engine.ApplyBehavior(b)
	return b
}

// SetTransform stores and applies t. Owner-only.
func (v *Viewer) SetTransform(t settings.Transform) settings.Transform {
	if t.Framing == "" {
		t.Framing = settings.FramingFull
	}
	v.cfg.Transform = t
	v.engine.ApplyTransform(t)
	return t
}

// SetOverlay applies o and stores it on success. Owner-only.
func (v *Viewer) SetOverlay(o settings.Overlay) (settings.Overlay, error) {
	if o.Mode == "" {
		o.Mode = settings.OverlayModeChromakey
	}
	if o.ChromakeyColor == "" {
		o.ChromakeyColor = settings.DefaultChromakeyColor
	}
	if err := v.overlay.Apply(o); err != nil {
		return settings.Overlay{}, err
	}
	v.cfg.Overlay = o
	return o, nil
}

// SaveSettings persists the snapshot and returns where it went. Owner-only.
func (v *Viewer) SaveSettings() (string, error) {
	if err := v.store.Save(v.cfg); err != nil {
		return "", err
	}
	return v.store.Path(), nil
}

// LoadSettings reloads the snapshot from the store and reapplies it without
// switching models. Owner-only.
func (v *Viewer) LoadSettings() {
	v.cfg = v.store.Load()
	v.publishAuth()
	v.applyConfig()
}

// Config returns a copy of the snapshot. Owner-only.
func (v *Viewer) Config() settings.Snapshot {
	return v.cfg
}

// Tick implements dispatch.Ticker.
func (v *Viewer) Tick(dt time.Duration) {
	v.engine.Tick(dt)
}

func (v *Viewer) applyConfig() {
	v.engine.ApplyBehavior(v.cfg.Behavior)
	v.engine.ApplyTransform(v.cfg.Transform)
	if err := v.overlay.Apply(v.cfg.Overlay); err != nil {
		logger.Warnf("[viewer] overlay not applied: %v", err)
	}
}

func (v *Viewer) publishAuth() {
	v.auth.Store(&authPolicy{required: v.cfg.APIKeyRequired, key: v.cfg.APIKey})
}
