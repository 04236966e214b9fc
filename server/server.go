package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"heatsim/calculator"
	"heatsim/model"
	"heatsim/queue"
	"heatsim/store"
	"heatsim/weld_process"
)

var (
	errBadRequest   = errors.New("bad request")
	errNotCompleted = errors.New("job has not completed")
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	queue    *queue.Queue
	store    *store.Store
	metrics  http.Handler
	hub      *Hub
}

// NewServer wires the HTTP layer to q. Progress changes from q are pushed to
// websocket watchers.
func NewServer(addr string, upgrader websocket.Upgrader, q *queue.Queue, metrics http.Handler) *Server {
	s := &Server{
		addr:     addr,
		upgrader: upgrader,
		queue:    q,
		store:    q.Store(),
		metrics:  metrics,
		hub:      NewHub(),
	}
	q.OnProgress(s.hub.Publish)
	return s
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/simulations", s.createSimulation)
		r.Post("/weld-projects", s.createWeldProject)
		r.Get("/queue", s.queueStatus)
		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Post("/run", s.runJob)
			r.Post("/cancel", s.cancelJob)
			r.Get("/progress", s.progress)
			r.Get("/results/{type}", s.result)
		})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/ws", s.serveWs)
	return r
}

// Serve runs the hub and the HTTP server until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.addr).Info("HTTP 服务启动")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("HTTP 服务已停止")
	return nil
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	c := newClient(s.hub, conn)
	if !c.join() {
		conn.Close()
		return
	}
	go c.handleRequest()
	go c.handleResponse()

	defer close(c.msg)
	defer c.leave()
	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("err: ", err)
			}
			return
		}
		c.msg <- msg
	}
}

type createSimulationReq struct {
	Name   string                 `json:"name"`
	Config model.SimulationConfig `json:"config"`
}

type createWeldProjectReq struct {
	Name    string                `json:"name"`
	Config  model.MultiPassConfig `json:"config"`
	Strings []model.WeldString    `json:"strings"`
}

func (s *Server) createSimulation(w http.ResponseWriter, r *http.Request) {
	var req createSimulationReq
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	job := &model.Job{
		Kind:   model.KindSimulation,
		Name:   req.Name,
		Config: model.JobConfig{Simulation: &req.Config},
	}
	s.create(w, r, job)
}

func (s *Server) createWeldProject(w http.ResponseWriter, r *http.Request) {
	var req createWeldProjectReq
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	for i := range req.Strings {
		req.Strings[i].ID = 0
		req.Strings[i].JobID = 0
	}
	job := &model.Job{
		Kind:    model.KindWeld,
		Name:    req.Name,
		Config:  model.JobConfig{MultiPass: &req.Config},
		Strings: req.Strings,
	}
	s.create(w, r, job)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, job *model.Job) {
	if err := queue.Validate(job); err != nil {
		writeError(w, err)
		return
	}
	job.Status = job.ConfiguredStatus()
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{"id": job.ID, "kind": job.Kind, "status": job.Status}).Info("创建任务")
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.queue.Enqueue(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.writeProgress(w, r, id)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.queue.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.writeProgress(w, r, id)
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeProgress(w, r, id)
}

func (s *Server) writeProgress(w http.ResponseWriter, r *http.Request, id uint) {
	p, err := s.queue.Progress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rt, err := model.ParseResultType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// 结果只在完成后可见
	if job.Status != model.StatusCompleted {
		writeError(w, fmt.Errorf("%w: status is %s", errNotCompleted, job.Status))
		return
	}
	res, err := s.store.GetResult(r.Context(), id, rt)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Data))
}

func (s *Server) queueStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.queue.QueueStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func jobID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid job id %q", errBadRequest, chi.URLParam(r, "id"))
	}
	return uint(id), nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	var upe *weld_process.UnknownProcessError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, calculator.ErrValidation),
		errors.Is(err, calculator.ErrUnknownPreset),
		errors.Is(err, calculator.ErrNoStrings),
		errors.Is(err, model.ErrIncomplete),
		errors.As(err, &upe):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrNotRunnable), errors.Is(err, queue.ErrNotCancellable), errors.Is(err, errNotCompleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		log.WithError(err).Error("请求处理失败")
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("err: ", err)
	}
}
