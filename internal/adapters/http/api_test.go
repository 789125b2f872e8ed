package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"soundcast/internal/app"
	"soundcast/internal/auth"
	"soundcast/internal/catalog"
	"soundcast/internal/config"
	"soundcast/internal/core"
	"soundcast/internal/domain"
	"soundcast/internal/library"

	"soundcast/internal/adapters/ws"

	"github.com/gin-gonic/gin"
)

const testPassword = "open-sesame"

type testServer struct {
	router *gin.Engine
	reg    *core.Registry
	cat    *catalog.Service
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	for _, f := range []string{"horn.wav", "drum.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cat, err := catalog.NewService(catalog.NewFileStore(filepath.Join(dir, "sounds-config.json")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cat.Add("Horn", "horn.wav"); err != nil {
		t.Fatal(err)
	}

	lib := library.New(dir, 0)
	reg := core.NewRegistry()
	coord := app.NewCoordinator(reg, cat, lib)
	gate := auth.NewGate(testPassword, "", auth.NewTokenStore(0, 0))

	cfg := &config.Config{
		Mode:   gin.TestMode,
		Port:   3030,
		Secret: "test-secret",
	}
	api := NewAPI(gate, cat, lib, coord, cfg.Port)
	wsc := ws.NewController(coord, gate, 32, 5*time.Second)

	return &testServer{
		router: NewRouter(context.Background(), cfg, api, wsc),
		reg:    reg,
		cat:    cat,
		dir:    dir,
	}
}

// do runs a request against the router. Requests carry a non-loopback
// RemoteAddr by default, which httptest.NewRequest provides.
func (ts *testServer) do(method, target string, body []byte, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func asHost(req *http.Request) {
	req.RemoteAddr = "127.0.0.1:51234"
}

func withToken(token string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("X-Auth-Token", token)
	}
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/auth/login", []byte(`{"password":"`+testPassword+`"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/auth/login", []byte(`{"password":"nope"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid password") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLoginMissingPassword(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/auth/login", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRemoteWithoutTokenIsRejected(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct {
		method, target string
	}{
		{http.MethodGet, "/api/sounds"},
		{http.MethodPost, "/api/play/1"},
		{http.MethodPost, "/api/stop"},
	} {
		w := ts.do(tc.method, tc.target, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.target, w.Code)
		}
		var resp struct {
			RequireAuth bool `json:"requireAuth"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || !resp.RequireAuth {
			t.Errorf("%s %s: body = %s, want requireAuth true", tc.method, tc.target, w.Body.String())
		}
	}
}

func TestRemoteTokenGrantsViewing(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	w := ts.do(http.MethodGet, "/api/sounds", nil, withToken(token))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var sounds []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sounds); err != nil {
		t.Fatal(err)
	}
	if len(sounds) != 1 || sounds[0].Name != "Horn" {
		t.Fatalf("sounds = %+v", sounds)
	}
}

func TestManagementDeniedToRemoteEvenWithToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	for _, tc := range []struct {
		method, target string
		body           []byte
	}{
		{http.MethodGet, "/api/sounds/files", nil},
		{http.MethodPost, "/api/sounds/add", []byte(`{"filename":"drum.mp3"}`)},
		{http.MethodPatch, "/api/sounds/1", []byte(`{"name":"Louder"}`)},
		{http.MethodDelete, "/api/sounds/1", nil},
	} {
		w := ts.do(tc.method, tc.target, tc.body, withToken(token))
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s: status = %d, want 403", tc.method, tc.target, w.Code)
		}
	}
	if _, ok := ts.cat.Get(1); !ok {
		t.Fatal("catalog entry was mutated through a denied request")
	}
}

func TestHostNeedsNoCredential(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/sounds", nil, asHost)
	if w.Code != http.StatusOK {
		t.Fatalf("sounds status = %d", w.Code)
	}
	w = ts.do(http.MethodGet, "/api/sounds/files", nil, asHost)
	if w.Code != http.StatusOK {
		t.Fatalf("files status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 || resp.Files[0] != "drum.mp3" {
		t.Fatalf("files = %v, want only the uncataloged drum.mp3", resp.Files)
	}
}

func TestAuthCheck(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	cases := []struct {
		name          string
		mutate        []func(*http.Request)
		authenticated bool
		isHost        bool
	}{
		{"host", []func(*http.Request){asHost}, true, true},
		{"remote with token", []func(*http.Request){withToken(token)}, true, false},
		{"remote without token", nil, false, false},
	}
	for _, tc := range cases {
		w := ts.do(http.MethodGet, "/api/auth/check", nil, tc.mutate...)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.name, w.Code)
		}
		var resp struct {
			Authenticated bool `json:"authenticated"`
			IsHost        bool `json:"isHost"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Authenticated != tc.authenticated || resp.IsHost != tc.isHost {
			t.Errorf("%s: got %+v", tc.name, resp)
		}
	}
}

func TestPlayUnknownSound(t *testing.T) {
	ts := newTestServer(t)

	conn := &countingConn{}
	attach(ts.reg, "c1", conn)

	for _, target := range []string{"/api/play/999", "/api/play/abc"} {
		w := ts.do(http.MethodPost, target, nil, asHost)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, w.Code)
		}
	}
	if n := conn.count(); n != 0 {
		t.Fatalf("failed plays broadcast %d frames, want 0", n)
	}
}

func TestPlayBroadcastsToConnectedClients(t *testing.T) {
	ts := newTestServer(t)

	conn := &countingConn{}
	attach(ts.reg, "c1", conn)

	w := ts.do(http.MethodPost, "/api/play/1", nil, asHost)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	frames := conn.frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	var evt struct {
		Type     string `json:"type"`
		SoundID  int    `json:"soundId"`
		AudioURL string `json:"audioUrl"`
	}
	if err := json.Unmarshal(frames[0], &evt); err != nil {
		t.Fatal(err)
	}
	if evt.Type != "play" || evt.SoundID != 1 || evt.AudioURL != "/api/audio/1" {
		t.Fatalf("event = %+v", evt)
	}
}

func TestStopBroadcasts(t *testing.T) {
	ts := newTestServer(t)

	conn := &countingConn{}
	attach(ts.reg, "c1", conn)

	w := ts.do(http.MethodPost, "/api/stop", nil, asHost)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	frames := conn.frames()
	if len(frames) != 1 || !strings.Contains(string(frames[0]), `"stop"`) {
		t.Fatalf("frames = %q", frames)
	}
}

func TestDeleteThenList(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodDelete, "/api/sounds/1", nil, asHost)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", w.Code, w.Body.String())
	}
	w = ts.do(http.MethodGet, "/api/sounds", nil, asHost)
	var sounds []json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &sounds); err != nil {
		t.Fatal(err)
	}
	if len(sounds) != 0 {
		t.Fatalf("catalog still has %d entries after delete", len(sounds))
	}

	w = ts.do(http.MethodDelete, "/api/sounds/1", nil, asHost)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", w.Code)
	}
}

func TestDeleteBroadcastsCatalogUpdate(t *testing.T) {
	ts := newTestServer(t)

	conn := &countingConn{}
	attach(ts.reg, "c1", conn)

	ts.do(http.MethodDelete, "/api/sounds/1", nil, asHost)
	frames := conn.frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	var evt struct {
		Type   string            `json:"type"`
		Sounds []json.RawMessage `json:"sounds"`
	}
	if err := json.Unmarshal(frames[0], &evt); err != nil {
		t.Fatal(err)
	}
	if evt.Type != "soundsUpdated" || len(evt.Sounds) != 0 {
		t.Fatalf("event = %s", frames[0])
	}
}

func TestAddExistingFile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/sounds/add", []byte(`{"filename":"drum.mp3","soundName":"Drum"}`), asHost)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	snd, ok := ts.cat.Get(2)
	if !ok || snd.Name != "Drum" || snd.File != "drum.mp3" {
		t.Fatalf("added sound = %+v, ok %v", snd, ok)
	}

	w = ts.do(http.MethodPost, "/api/sounds/add", []byte(`{"filename":"ghost.wav"}`), asHost)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing file status = %d, want 404", w.Code)
	}
	w = ts.do(http.MethodPost, "/api/sounds/add", []byte(`{}`), asHost)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty filename status = %d, want 400", w.Code)
	}
}

func TestRename(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPatch, "/api/sounds/1", []byte(`{"name":"Air Horn"}`), asHost)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	snd, _ := ts.cat.Get(1)
	if snd.Name != "Air Horn" {
		t.Fatalf("name = %q", snd.Name)
	}

	w = ts.do(http.MethodPatch, "/api/sounds/1", []byte(`{"name":""}`), asHost)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty name status = %d, want 400", w.Code)
	}
	w = ts.do(http.MethodPatch, "/api/sounds/42", []byte(`{"name":"x"}`), asHost)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", w.Code)
	}
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartFile(t, "soundFile", "air horn!.wav", []byte("wavdata"), map[string]string{"soundName": "Air Horn"})
	w := ts.do(http.MethodPost, "/api/sounds/upload", body, asHost, func(req *http.Request) {
		req.Header.Set("Content-Type", contentType)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	snd, ok := ts.cat.Get(2)
	if !ok || snd.Name != "Air Horn" || snd.File != "air_horn_.wav" {
		t.Fatalf("sound = %+v, ok %v", snd, ok)
	}
	if _, err := os.Stat(filepath.Join(ts.dir, "air_horn_.wav")); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}
}

func TestUploadRejectsNonAudio(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartFile(t, "soundFile", "evil.exe", []byte("MZ"), nil)
	w := ts.do(http.MethodPost, "/api/sounds/upload", body, asHost, func(req *http.Request) {
		req.Header.Set("Content-Type", contentType)
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartFile(t, "wrongField", "x.wav", []byte("x"), nil)
	w := ts.do(http.MethodPost, "/api/sounds/upload", body, asHost, func(req *http.Request) {
		req.Header.Set("Content-Type", contentType)
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAudioServesFile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/audio/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "data" {
		t.Fatalf("body = %q", w.Body.String())
	}

	w = ts.do(http.MethodGet, "/api/audio/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", w.Code)
	}
}

func TestAudioMissingFileOnDisk(t *testing.T) {
	ts := newTestServer(t)

	if err := os.Remove(filepath.Join(ts.dir, "horn.wav")); err != nil {
		t.Fatal(err)
	}
	w := ts.do(http.MethodGet, "/api/audio/1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestInfo(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/info", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Port int `json:"port"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Port != 3030 {
		t.Fatalf("port = %d", resp.Port)
	}
}

func TestDevicePreference(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/devices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = ts.do(http.MethodPost, "/api/device", []byte(`{"deviceId":"speakers-2"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("set status = %d, body %s", w.Code, w.Body.String())
	}
	w = ts.do(http.MethodGet, "/api/devices", nil)
	var resp struct {
		CurrentDevice string `json:"currentDevice"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CurrentDevice != "speakers-2" {
		t.Fatalf("currentDevice = %q", resp.CurrentDevice)
	}

	w = ts.do(http.MethodPost, "/api/device", []byte(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing id status = %d, want 400", w.Code)
	}
}

func multipartFile(t *testing.T, field, filename string, data []byte, extra map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	for k, v := range extra {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

type countingConn struct {
	got []core.Frame
}

func (c *countingConn) TrySend(f core.Frame) error {
	cp := make(core.Frame, len(f))
	copy(cp, f)
	c.got = append(c.got, cp)
	return nil
}

func (c *countingConn) Close() {}

func (c *countingConn) frames() []core.Frame { return c.got }
func (c *countingConn) count() int           { return len(c.got) }

func attach(reg *core.Registry, sid string, conn core.ClientConn) {
	meta := domain.NewClient(domain.ClientID(sid), domain.RoleRemote, true)
	reg.Add(core.SessionID(sid), core.NewClientSession(meta, conn), func() {})
}
