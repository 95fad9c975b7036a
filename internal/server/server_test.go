package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/session"
)

const fixture = `Time Base: 1.000000e-3
Channel A Sensitivity: 2.000000
Channel A Connected: Yes
Time    Channel A
----
0.0,1.5
0.001,-0.5
0.002,1.0
`

func newTestRouter(t *testing.T) (*gin.Engine, *session.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := session.New(logger)
	return NewRouter(sess, logger, Options{}), sess
}

func upload(t *testing.T, router http.Handler, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/captures", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func do(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestUploadAndCurrent(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/api/v1/captures/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = upload(t, router, "fixture.scp", fixture)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[CaptureResponse](t, rec)
	assert.Equal(t, "fixture.scp", created.Source)
	assert.True(t, created.HeaderSettings)
	assert.Equal(t, []string{"Channel A"}, created.Channels)
	assert.InDelta(t, -5e-3, created.View.X.Min, 1e-15)
	assert.Equal(t, model.Domain{Min: -8, Max: 8}, created.View.Y)

	rec = do(router, http.MethodGet, "/api/v1/captures/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[CaptureResponse](t, rec).ID)

	rec = do(router, http.MethodGet, "/api/v1/captures/current/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[model.Statistics](t, rec)
	assert.Equal(t, 3, st.Overall.TotalSamples)
}

func TestUploadErrors(t *testing.T) {
	router, sess := newTestRouter(t)

	rec := upload(t, router, "fixture.pdf", fixture)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "capture rejected", errResp.Error)
	assert.NotEmpty(t, errResp.Details)

	rec = upload(t, router, "empty.csv", "Time Base: 1e-3\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	sess.SetSizeLimit(16)
	rec = upload(t, router, "big.csv", strings.Repeat("0 1\n", 10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/captures", strings.NewReader("x"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, ok := sess.Current()
	assert.False(t, ok)
}

func TestFailedUploadClearsCapture(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, upload(t, router, "fixture.scp", fixture).Code)

	rec := upload(t, router, "notes.txt", "no numbers here\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/captures/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, upload(t, router, "fixture.scp", fixture).Code)

	rec := do(router, http.MethodPost, "/api/v1/captures/current/settings/step", StepRequest{Control: "timebase", Direction: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0.002, decode[CaptureResponse](t, rec).Settings.TimePerDiv)

	rec = do(router, http.MethodPost, "/api/v1/captures/current/settings/step", StepRequest{Control: "volts", Direction: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/captures/current/settings/step", StepRequest{Control: "toggle", Channel: "Channel A"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[CaptureResponse](t, rec).Settings.Channels[0].Enabled)

	bad := model.ScopeSettings{TimePerDiv: -1}
	rec = do(router, http.MethodPut, "/api/v1/captures/current/settings", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	good := model.ScopeSettings{TimePerDiv: 5e-4, XPosition: 1e-3, Channels: []model.ChannelSettings{{Name: "Channel A", VoltsPerDiv: 1, Enabled: true}}}
	rec = do(router, http.MethodPut, "/api/v1/captures/current/settings", good)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CaptureResponse](t, rec)
	assert.InDelta(t, -1.5e-3, resp.View.X.Min, 1e-15)

	rec = do(router, http.MethodPost, "/api/v1/captures/current/settings/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CaptureResponse](t, rec)
	assert.False(t, resp.HeaderSettings)
	assert.InDelta(t, 2e-4, resp.Settings.TimePerDiv, 1e-15)
}

func TestViewAndSamples(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, upload(t, router, "fixture.scp", fixture).Code)

	rec := do(router, http.MethodGet, "/api/v1/captures/current/view?separate=true&channel=Channel%20A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[ViewResponse](t, rec)
	assert.Len(t, view.XTicks, 11)
	assert.Len(t, view.YTicks, 9)
	assert.Equal(t, model.Domain{Min: -8, Max: 8}, view.Y)

	rec = do(router, http.MethodGet, "/api/v1/captures/current/samples?xmin=0.0005&xmax=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	samples := decode[SamplesResponse](t, rec)
	assert.Equal(t, []string{"Channel A"}, samples.Names)
	require.Len(t, samples.Rows, 2)
	assert.Equal(t, -0.5, samples.Rows[0].Values[0])

	rec = do(router, http.MethodGet, "/api/v1/captures/current/samples?xmin=0.0005&xmax=1&maxPoints=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[SamplesResponse](t, rec).Rows, 2)

	rec = do(router, http.MethodGet, "/api/v1/captures/current/samples?xmin=5&xmax=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[SamplesResponse](t, rec).Rows)

	rec = do(router, http.MethodGet, "/api/v1/captures/current/samples?xmin=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, upload(t, router, "fixture.scp", fixture).Code)

	rec := do(router, http.MethodGet, "/api/v1/captures/current/export/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fixture_data.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Time(s),Channel A\n"))

	rec = do(router, http.MethodGet, "/api/v1/captures/current/export/sqlite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "SQLite format 3"))

	rec = do(router, http.MethodGet, "/api/v1/captures/current/export/pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZoomPanAndClear(t *testing.T) {
	router, sess := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/v1/view/zoom", ZoomRequest{Domain: model.Domain{Min: 0, Max: 10}, Fraction: 0.5, Factor: 0.5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Domain{Min: 2.5, Max: 7.5}, decode[model.Domain](t, rec))

	rec = do(router, http.MethodPost, "/api/v1/view/pan", PanRequest{Domain: model.Domain{Min: 0, Max: 10}, DeltaFraction: 0.5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Domain{Min: -5, Max: 5}, decode[model.Domain](t, rec))

	require.Equal(t, http.StatusCreated, upload(t, router, "fixture.scp", fixture).Code)
	rec = do(router, http.MethodDelete, "/api/v1/captures/current", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := sess.Current()
	assert.False(t, ok)
}
