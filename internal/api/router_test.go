package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bhandras/avatarctl/internal/api/handlers"
	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/dispatch"
	"github.com/bhandras/avatarctl/internal/engine"
	"github.com/bhandras/avatarctl/internal/engine/enginetest"
	"github.com/bhandras/avatarctl/internal/session"
	"github.com/bhandras/avatarctl/internal/settings"
	"github.com/bhandras/avatarctl/internal/version"
	"github.com/bhandras/avatarctl/internal/viewer"
	"github.com/bhandras/avatarctl/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	session *session.Session
	queue   *dispatch.Queue
	engine  *engine.Headless
	viewer  *viewer.Viewer
	store   *settings.FileStore
}

type serverOption func(*settings.Snapshot)

func withAPIKey(key string) serverOption {
	return func(s *settings.Snapshot) {
		s.APIKeyRequired = true
		s.APIKey = key
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	root := t.TempDir()
	enginetest.WriteBundle(t, root, enginetest.Bundle{
		ID:          "hiyori",
		Expressions: []string{"smile", "angry"},
		Motions:     map[string][]string{"Idle": {"idle_01"}, "TapBody": {"tap_01"}},
	})
	enginetest.WriteBundle(t, root, enginetest.Bundle{ID: "natori"})
	enginetest.WriteBrokenBundle(t, root, "broken")

	store := settings.NewFileStore(filepath.Join(t.TempDir(), "config.json"), settings.FormatJSON)
	if len(opts) > 0 {
		cfg := settings.Defaults()
		for _, opt := range opts {
			opt(&cfg)
		}
		require.NoError(t, store.Save(cfg))
	}

	ts := &testServer{
		session: session.New(),
		queue:   dispatch.NewQueue(),
		engine:  engine.NewHeadless(),
		store:   store,
	}
	ts.viewer = viewer.New(viewer.Deps{
		Session: ts.session,
		Queue:   ts.queue,
		Engine:  ts.engine,
		Overlay: engine.NewHeadlessOverlay(),
		Store:   store,
	})
	ts.router = NewRouter(Deps{
		Session:        ts.session,
		Queue:          ts.queue,
		Catalog:        catalog.NewDirScanner(root),
		Viewer:         ts.viewer,
		AllowedOrigins: []string{"*"},
	})
	return ts
}

// startLoop runs the owner loop in the background until the test ends.
func (ts *testServer) startLoop(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatch.NewLoop(ts.queue, time.Millisecond, ts.viewer).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// onOwner runs fn on the owner loop and waits for it.
func (ts *testServer) onOwner(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	ts.queue.Enqueue(func() error {
		fn()
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("owner loop did not run the command")
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// loadModel switches to id and drains the queue so the model is ready.
func (ts *testServer) loadModel(t *testing.T, id string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ts.queue.DrainOnce()
	require.Equal(t, session.StateReady, ts.session.Snapshot().State)
}

type envelopeResponse struct {
	OK        bool            `json:"ok"`
	RequestID string          `json:"request_id"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     types.ErrorBody `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelopeResponse {
	t.Helper()
	var env envelopeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NotEmpty(t, env.RequestID)
	require.Equal(t, env.RequestID, rec.Header().Get(types.RequestIDHeader))
	_, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	require.NoError(t, err)
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.OK, rec.Body.String())
	var data T
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) types.ErrorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := decode(t, rec)
	require.False(t, env.OK)
	require.Equal(t, code, env.Error.Code)
	return env.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeData[handlers.HealthResponse](t, rec)
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, version.Version(), resp.Version)
}

func TestAuth_RequiredOnEveryRoute(t *testing.T) {
	ts := newTestServer(t, withAPIKey("secret"))

	for _, path := range []string{"/v1/health", "/v1/health/", "/v1/models", "/v1/models/", "/v1/model/status", "/v1/nope"} {
		rec := ts.do(t, http.MethodGet, path, "")
		requireError(t, rec, http.StatusUnauthorized, "unauthorized")

		rec = ts.do(t, http.MethodGet, path, "", types.APIKeyHeader, "wrong")
		requireError(t, rec, http.StatusUnauthorized, "unauthorized")
	}

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"hiyori"}`)
	requireError(t, rec, http.StatusUnauthorized, "unauthorized")
	require.Equal(t, 0, ts.queue.Len())
	require.Equal(t, session.StateReady, ts.session.Snapshot().State)

	rec = ts.do(t, http.MethodPost, "/v1/model/switch/", `{"model_id":"hiyori"}`, types.APIKeyHeader, "wrong")
	requireError(t, rec, http.StatusUnauthorized, "unauthorized")
	require.Equal(t, 0, ts.queue.Len())

	rec = ts.do(t, http.MethodGet, "/v1/health", "", types.APIKeyHeader, "secret")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListModels(t *testing.T) {
	ts := newTestServer(t)

	resp := decodeData[handlers.ModelsResponse](t, ts.do(t, http.MethodGet, "/v1/models", ""))
	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		ids = append(ids, m.ID)
	}
	require.Equal(t, []string{"broken", "hiyori", "natori"}, ids)
}

func TestModelSwitch_LoadingVisibleBeforeDrain(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"hiyori"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sw := decodeData[handlers.ModelSwitchStateResponse](t, rec)
	require.Equal(t, handlers.ModelSwitchStateResponse{State: "loading", ModelID: "hiyori"}, sw)

	status := decodeData[handlers.ModelStatusResponse](t, ts.do(t, http.MethodGet, "/v1/model/status", ""))
	require.Equal(t, "loading", status.State)
	require.Equal(t, "hiyori", status.ModelID)
	require.Nil(t, status.LastError)

	ts.queue.DrainOnce()
	status = decodeData[handlers.ModelStatusResponse](t, ts.do(t, http.MethodGet, "/v1/model/status", ""))
	require.Equal(t, "ready", status.State)
	require.Equal(t, "hiyori", status.ModelID)
}

func TestModelSwitch_BusyWithoutForce(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"hiyori"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, ts.queue.Len())

	rec = ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"natori"}`)
	requireError(t, rec, http.StatusConflict, "conflict")
	require.Equal(t, 1, ts.queue.Len())
	require.Equal(t, "hiyori", ts.session.Snapshot().ModelID())
}

func TestModelSwitch_ForcedSwitchesRunInOrder(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"hiyori"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"natori","force":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, ts.queue.Len())

	require.Equal(t, 2, ts.queue.DrainOnce())
	require.Equal(t, session.Snapshot{State: session.StateReady, ActiveID: "natori"}, ts.session.Snapshot())
	require.Equal(t, "natori", ts.engine.ModelID())
}

func TestModelSwitch_UnknownModel(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"ghost"}`)
	requireError(t, rec, http.StatusNotFound, "not-found")
	require.Equal(t, 0, ts.queue.Len())
	require.Equal(t, session.Snapshot{State: session.StateReady}, ts.session.Snapshot())
}

func TestModelSwitch_FailureReportsLastError(t *testing.T) {
	ts := newTestServer(t)
	ts.loadModel(t, "hiyori")

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"broken"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	ts.queue.DrainOnce()

	status := decodeData[handlers.ModelStatusResponse](t, ts.do(t, http.MethodGet, "/v1/model/status", ""))
	require.Equal(t, "error", status.State)
	require.Equal(t, "hiyori", status.ModelID)
	require.NotNil(t, status.LastError)
	require.Contains(t, *status.LastError, "model3 load failed")

	rec = ts.do(t, http.MethodGet, "/v1/expressions", "")
	requireError(t, rec, http.StatusConflict, "conflict")
}

func TestInvalidRequests(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name, path, body string
	}{
		{"empty body", "/v1/model/switch", ""},
		{"malformed", "/v1/model/switch", `{"model_id":`},
		{"missing model id", "/v1/model/switch", `{"force":true}`},
		{"unknown field", "/v1/model/switch", `{"model_id":"hiyori","extra":1}`},
		{"wrong type", "/v1/model/switch", `{"model_id":42}`},
		{"negative gain", "/v1/behavior/auto", `{"blink_gain":-1}`},
		{"zero scale", "/v1/transform", `{"scale":0}`},
		{"bad framing", "/v1/transform", `{"framing":"waist"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tc.path, tc.body)
			requireError(t, rec, http.StatusBadRequest, "invalid-request")
		})
	}
	require.Equal(t, 0, ts.queue.Len())
	require.Equal(t, session.Snapshot{State: session.StateReady}, ts.session.Snapshot())
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)

	requireError(t, ts.do(t, http.MethodGet, "/v1/nope", ""), http.StatusNotFound, "not-found")
	requireError(t, ts.do(t, http.MethodGet, "/v1/model/switch", ""), http.StatusNotFound, "not-found")
	requireError(t, ts.do(t, http.MethodGet, "/v1/health/", ""), http.StatusNotFound, "not-found")
	requireError(t, ts.do(t, http.MethodGet, "/V1/HEALTH", ""), http.StatusNotFound, "not-found")
	requireError(t, ts.do(t, http.MethodPost, "/v1/model/switch/", `{"model_id":"hiyori"}`),
		http.StatusNotFound, "not-found")
	require.Equal(t, 0, ts.queue.Len())
}

func TestExpressionsAndMotions(t *testing.T) {
	ts := newTestServer(t)

	requireError(t, ts.do(t, http.MethodGet, "/v1/expressions", ""), http.StatusConflict, "conflict")
	requireError(t, ts.do(t, http.MethodGet, "/v1/motions", ""), http.StatusConflict, "conflict")

	ts.loadModel(t, "hiyori")
	ts.startLoop(t)

	exps := decodeData[handlers.ExpressionsResponse](t, ts.do(t, http.MethodGet, "/v1/expressions", ""))
	require.Len(t, exps.Expressions, 2)
	motions := decodeData[handlers.MotionsResponse](t, ts.do(t, http.MethodGet, "/v1/motions", ""))
	require.Len(t, motions.Motions, 2)

	applied := decodeData[handlers.ExpressionApplyResponse](t,
		ts.do(t, http.MethodPost, "/v1/expression/apply", `{"expression_id":"smile","fade_ms":200}`))
	require.Equal(t, handlers.ExpressionApplyResponse{Applied: true, ExpressionID: "smile"}, applied)

	rec := ts.do(t, http.MethodPost, "/v1/expression/apply", `{"expression_id":"nope"}`)
	requireError(t, rec, http.StatusNotFound, "not-found")

	play := decodeData[handlers.MotionPlayResponse](t,
		ts.do(t, http.MethodPost, "/v1/motion/play", `{"motion_id":"`+motions.Motions[0].ID+`"}`))
	require.True(t, play.Started)
	require.NotEmpty(t, play.PlayID)

	rec = ts.do(t, http.MethodPost, "/v1/motion/play", `{"motion_id":"nope"}`)
	requireError(t, rec, http.StatusNotFound, "not-found")
	rec = ts.do(t, http.MethodPost, "/v1/motion/play", `{"motion_id":"x","priority":"urgent"}`)
	requireError(t, rec, http.StatusBadRequest, "invalid-request")

	stop := decodeData[handlers.MotionStopResponse](t, ts.do(t, http.MethodPost, "/v1/motion/stop", ""))
	require.True(t, stop.Stopped)
}

func TestMutationsRejectedWhileLoading(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"hiyori"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	requireError(t, ts.do(t, http.MethodPost, "/v1/expression/apply", `{"expression_id":"smile"}`),
		http.StatusConflict, "conflict")
	requireError(t, ts.do(t, http.MethodPost, "/v1/motion/play", `{"motion_id":"idle_01"}`),
		http.StatusConflict, "conflict")
	requireError(t, ts.do(t, http.MethodPost, "/v1/motion/stop", ""),
		http.StatusConflict, "conflict")
	requireError(t, ts.do(t, http.MethodPost, "/v1/window/overlay", `{}`),
		http.StatusConflict, "conflict")
	require.Equal(t, 1, ts.queue.Len())
}

func TestInventoryHiddenWhileSwitching(t *testing.T) {
	ts := newTestServer(t)
	ts.loadModel(t, "hiyori")

	rec := ts.do(t, http.MethodPost, "/v1/model/switch", `{"model_id":"natori"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, session.StateLoading, ts.session.Snapshot().State)

	// The previous model's inventory is still published until the switch runs.
	_, ok := ts.viewer.Inventory()
	require.True(t, ok)

	requireError(t, ts.do(t, http.MethodGet, "/v1/expressions", ""), http.StatusConflict, "conflict")
	requireError(t, ts.do(t, http.MethodGet, "/v1/motions", ""), http.StatusConflict, "conflict")

	ts.queue.DrainOnce()
	exps := decodeData[handlers.ExpressionsResponse](t, ts.do(t, http.MethodGet, "/v1/expressions", ""))
	require.Empty(t, exps.Expressions)
}

func TestSceneMutations(t *testing.T) {
	ts := newTestServer(t)
	ts.loadModel(t, "hiyori")
	ts.startLoop(t)

	behavior := decodeData[settings.Behavior](t,
		ts.do(t, http.MethodPost, "/v1/behavior/auto", `{"blink":false,"breath_gain":2}`))
	want := settings.DefaultBehavior()
	want.Blink = false
	want.BreathGain = 2
	require.Equal(t, want, behavior)

	transform := decodeData[settings.Transform](t,
		ts.do(t, http.MethodPost, "/v1/transform", `{"x":10,"y":-5,"scale":1.5,"framing":"bustup"}`))
	require.Equal(t, settings.Transform{X: 10, Y: -5, Scale: 1.5, Framing: settings.FramingBustup}, transform)

	overlay := decodeData[settings.Overlay](t,
		ts.do(t, http.MethodPost, "/v1/window/overlay", `{"opacity":0.5,"chromakey_color":"#FF00FF"}`))
	require.Equal(t, 0.5, overlay.Opacity)
	require.Equal(t, settings.OverlayModeChromakey, overlay.Mode)
	require.Equal(t, "#FF00FF", overlay.ChromakeyColor)

	rec := ts.do(t, http.MethodPost, "/v1/window/overlay", `{"mode":"native"}`)
	requireError(t, rec, http.StatusUnprocessableEntity, "unsupported")

	rec = ts.do(t, http.MethodPost, "/v1/window/overlay", `{"opacity":2}`)
	requireError(t, rec, http.StatusBadRequest, "invalid-request")

	accepted := decodeData[handlers.AcceptedResponse](t,
		ts.do(t, http.MethodPost, "/v1/lipsync/volume", `{"volume":0.3}`))
	require.True(t, accepted.Accepted)
}

func TestSettingsSaveAndLoad(t *testing.T) {
	ts := newTestServer(t)
	ts.loadModel(t, "hiyori")
	ts.startLoop(t)

	rec := ts.do(t, http.MethodPost, "/v1/transform", `{"scale":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	saved := decodeData[handlers.SettingsSaveResponse](t, ts.do(t, http.MethodPost, "/v1/settings/save", ""))
	require.True(t, saved.Saved)
	require.Equal(t, ts.store.Path(), saved.Path)

	stored := ts.store.Load()
	require.Equal(t, "hiyori", stored.ModelID)
	require.Equal(t, 2.0, stored.Transform.Scale)

	rec = ts.do(t, http.MethodPost, "/v1/transform", `{"scale":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	loaded := decodeData[handlers.SettingsLoadResponse](t, ts.do(t, http.MethodPost, "/v1/settings/load", ""))
	require.True(t, loaded.Loaded)
	var pose engine.Pose
	ts.onOwner(t, func() { pose = ts.engine.Pose() })
	require.Equal(t, 2.0, pose.Scale)
	require.Equal(t, "hiyori", ts.session.Snapshot().ActiveID)
}

func TestSettingsLoad_RepublishesAPIKey(t *testing.T) {
	ts := newTestServer(t)
	ts.startLoop(t)

	cfg := settings.Defaults()
	cfg.APIKeyRequired = true
	cfg.APIKey = "fresh"
	require.NoError(t, ts.store.Save(cfg))

	rec := ts.do(t, http.MethodPost, "/v1/settings/load", "")
	require.Equal(t, http.StatusOK, rec.Code)

	requireError(t, ts.do(t, http.MethodGet, "/v1/health", ""), http.StatusUnauthorized, "unauthorized")
	rec = ts.do(t, http.MethodGet, "/v1/health", "", types.APIKeyHeader, "fresh")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusStream(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/model/status/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() handlers.StatusEvent {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev handlers.StatusEvent
		require.NoError(t, conn.ReadJSON(&ev))
		require.Equal(t, "status", ev.Type)
		return ev
	}

	require.Equal(t, "ready", read().Data.State)

	resp, err := http.Post(srv.URL+"/v1/model/switch", "application/json",
		strings.NewReader(`{"model_id":"hiyori"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev := read()
	require.Equal(t, "loading", ev.Data.State)
	require.Equal(t, "hiyori", ev.Data.ModelID)
}
