package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatsim/model"
	"heatsim/queue"
	"heatsim/store"
)

const simulationBody = `{
	"name": "bead on plate",
	"config": {
		"process": "gtaw",
		"heat_input": 0.8,
		"travel_speed": 4,
		"preheat": 20,
		"grid": {"ny": 21, "nz": 11, "dt": 0.1, "total_time": 10, "output_interval": 20}
	}
}`

const weldBody = `{
	"name": "two pass",
	"config": {"process": "mig_mag", "preheat": 50, "interpass_temperature": 200, "grid_resolution": "coarse"},
	"strings": [
		{"string_number": 2, "layer": 2, "position_in_layer": 1, "simulation_duration": 5},
		{"string_number": 1, "layer": 1, "position_in_layer": 1, "simulation_duration": 5}
	]
}`

type fixture struct {
	srv *Server
	q   *queue.Queue
	h   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := queue.NewMetrics()
	q := queue.New(s, queue.Config{PollInterval: 10 * time.Millisecond, ProgressInterval: time.Millisecond}, m)
	srv := NewServer(":0", websocket.Upgrader{}, q, m.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Hub().Run(ctx)
	return &fixture{srv: srv, q: q, h: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader([]byte(body))))
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *fixture) createSimulation(t *testing.T) model.Job {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/simulations", simulationBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeInto[model.Job](t, rec)
}

func TestCreateSimulation(t *testing.T) {
	f := newFixture(t)
	job := f.createSimulation(t)
	assert.NotZero(t, job.ID)
	assert.Equal(t, model.KindSimulation, job.Kind)
	assert.Equal(t, model.StatusReady, job.Status)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/jobs/%d", job.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeInto[model.Job](t, rec)
	require.NotNil(t, got.Config.Simulation)
	assert.Equal(t, 0.8, got.Config.Simulation.HeatInput)
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/simulations", `{"name":"todo","config":{"process":"saw"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	job := decodeInto[model.Job](t, rec)
	assert.Equal(t, model.StatusDraft, job.Status)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/run", job.ID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"bad json":        `{"name":`,
		"unknown field":   `{"name":"x","colour":"red"}`,
		"unknown process": `{"config":{"process":"plasma","heat_input":1,"travel_speed":5}}`,
		"bad grid":        `{"config":{"process":"gtaw","heat_input":1,"travel_speed":5,"grid":{"ny":1,"nz":1,"dt":0.1,"total_time":1}}}`,
		"unknown preset":  `{"config":{"process":"gtaw","heat_input":1,"travel_speed":5,"grid_resolution":"ultra"}}`,
		"unknown steel":   `{"config":{"process":"gtaw","heat_input":1,"travel_speed":5,"material":{"steel":"unobtainium"}}}`,
		"negative f_r":    `{"config":{"process":"gtaw","heat_input":1,"travel_speed":5,"pool":{"f_f":2.5}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/simulations", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeInto[errorBody](t, rec).Error)
		})
	}
}

func TestCreateWeldProject(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/weld-projects", weldBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decodeInto[model.Job](t, rec)
	assert.Equal(t, model.StatusConfigured, job.Status)
	assert.Equal(t, 2, job.TotalStrings)

	rec = f.do(t, http.MethodPost, "/api/weld-projects", `{"name":"empty","config":{"process":"saw"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.StatusDraft, decodeInto[model.Job](t, rec).Status)

	bad := strings.Replace(weldBody, `"string_number": 1,`, `"string_number": 1, "initial_temp_mode": "guess",`, 1)
	rec = f.do(t, http.MethodPost, "/api/weld-projects", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAndCancel(t *testing.T) {
	f := newFixture(t)
	job := f.createSimulation(t)
	base := fmt.Sprintf("/api/jobs/%d", job.ID)

	rec := f.do(t, http.MethodPost, base+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/run", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decodeInto[model.Progress](t, rec)
	assert.Equal(t, model.StatusQueued, p.Status)
	require.NotNil(t, p.QueuePosition)
	assert.Equal(t, 1, *p.QueuePosition)

	rec = f.do(t, http.MethodPost, base+"/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeInto[queue.Status](t, rec)
	assert.Nil(t, st.Running)
	require.Len(t, st.Queued, 1)
	assert.Equal(t, job.ID, st.Queued[0].ID)

	rec = f.do(t, http.MethodPost, base+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	p = decodeInto[model.Progress](t, rec)
	assert.Equal(t, model.StatusReady, p.Status)
	assert.Nil(t, p.QueuePosition)
}

func TestNotFoundAndBadIDs(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/jobs/99/progress", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/jobs/99/run", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/jobs/abc/progress", "").Code)

	job := f.createSimulation(t)
	base := fmt.Sprintf("/api/jobs/%d/results/", job.ID)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, base+"goldak_field", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, base+"movie", "").Code)
}

func TestResultsHiddenUntilCompleted(t *testing.T) {
	f := newFixture(t)
	job := f.createSimulation(t)
	ctx := context.Background()
	path := fmt.Sprintf("/api/jobs/%d/results/goldak_field", job.ID)

	rec := f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err := f.q.Enqueue(ctx, job.ID)
	require.NoError(t, err)
	_, err = f.q.ClaimNextJob(ctx)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeInto[errorBody](t, rec).Error, "running")
}

func TestResultsAfterExecute(t *testing.T) {
	f := newFixture(t)
	job := f.createSimulation(t)
	ctx := context.Background()
	_, err := f.q.Enqueue(ctx, job.ID)
	require.NoError(t, err)
	claimed, err := f.q.ClaimNextJob(ctx)
	require.NoError(t, err)
	f.q.Execute(ctx, claimed)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/jobs/%d/progress", job.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeInto[model.Progress](t, rec)
	assert.Equal(t, model.StatusCompleted, p.Status)
	assert.Equal(t, 100.0, p.ProgressPercent)

	for _, rt := range []string{"goldak_field", "haz_profile"} {
		rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/jobs/%d/results/%s", job.ID, rt), "")
		require.Equal(t, http.StatusOK, rec.Code, rt)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.True(t, json.Valid(rec.Body.Bytes()), rt)
	}

	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `heatsim_jobs_finished_total{kind="simulation",status="completed"} 1`)
}

func readProgress(t *testing.T, conn *websocket.Conn, jobID uint) model.Progress {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg model.Msg
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != "progress" {
			continue
		}
		var p model.Progress
		require.NoError(t, json.Unmarshal([]byte(msg.Content), &p))
		if p.JobID == jobID {
			return p
		}
	}
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.h)
	t.Cleanup(ts.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocketWatch(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	// 订阅前的进度通过历史回放送达
	f.srv.Hub().Publish(model.Progress{JobID: 7, Status: model.StatusRunning, ProgressPercent: 10})
	require.NoError(t, conn.WriteJSON(model.Msg{Type: "watch", Content: "7"}))
	p := readProgress(t, conn, 7)
	assert.Equal(t, 10.0, p.ProgressPercent)

	f.srv.Hub().Publish(model.Progress{JobID: 8, Status: model.StatusRunning, ProgressPercent: 50})
	f.srv.Hub().Publish(model.Progress{JobID: 7, Status: model.StatusCompleted, ProgressPercent: 100})
	p = readProgress(t, conn, 7)
	assert.Equal(t, model.StatusCompleted, p.Status)
}

func TestWebsocketUnknownType(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	require.NoError(t, conn.WriteJSON(model.Msg{Type: "start"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg model.Msg
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "no such type", msg.Content)
}

func TestWebsocketQueueEvents(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	job := f.createSimulation(t)

	require.NoError(t, conn.WriteJSON(model.Msg{Type: "watch", Content: fmt.Sprint(job.ID)}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ack model.Msg
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "watching", ack.Type)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/run", job.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := readProgress(t, conn, job.ID)
	assert.Equal(t, model.StatusQueued, p.Status)
}
