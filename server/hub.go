package server

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"heatsim/deque"
	"heatsim/model"
)

const (
	historyLength = 32  // 每个任务保留的最近进度条数
	progressQueue = 256 // 待广播的进度
	sendQueue     = 64  // 每个连接待发送的消息
)

// 连接发给 hub 的请求
type request struct {
	c      *client
	kind   string // watch | unwatch | reject
	jobID  uint
	reason string
}

// Hub fans job progress out to websocket clients. All client state is owned
// by the Run goroutine.
type Hub struct {
	progress   chan model.Progress
	register   chan *client
	unregister chan *client
	requests   chan request
	done       chan struct{}

	clients map[*client]struct{}
	history map[uint]*deque.ArrDeque[model.Progress]
}

func NewHub() *Hub {
	return &Hub{
		progress:   make(chan model.Progress, progressQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		requests:   make(chan request),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		history:    make(map[uint]*deque.ArrDeque[model.Progress]),
	}
}

// Publish never blocks the caller; when the hub falls behind the update is dropped.
func (h *Hub) Publish(p model.Progress) {
	select {
	case h.progress <- p:
	default:
		log.WithField("job", p.JobID).Warn("进度队列已满，丢弃")
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case r := <-h.requests:
			if _, ok := h.clients[r.c]; ok {
				h.handle(r)
			}
		case p := <-h.progress:
			buf, ok := h.history[p.JobID]
			if !ok {
				buf = deque.NewArrDeque[model.Progress](historyLength)
				h.history[p.JobID] = buf
			}
			buf.PushBounded(p)
			msg := progressMsg(p)
			for c := range h.clients {
				if c.watching[p.JobID] {
					c.reply(msg)
				}
			}
		}
	}
}

func (h *Hub) handle(r request) {
	switch r.kind {
	case "watch":
		r.c.watching[r.jobID] = true
		if buf, ok := h.history[r.jobID]; ok {
			for _, p := range buf.Slice() {
				r.c.reply(progressMsg(p))
			}
		}
		r.c.reply(model.Msg{Type: "watching", Content: strconv.FormatUint(uint64(r.jobID), 10)})
	case "unwatch":
		delete(r.c.watching, r.jobID)
	default:
		r.c.reply(model.Msg{Type: "error", Content: r.reason})
	}
}

func progressMsg(p model.Progress) model.Msg {
	data, err := json.Marshal(p)
	if err != nil {
		log.Println("err: ", err)
	}
	return model.Msg{Type: "progress", Content: string(data)}
}

// client is one websocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	// request
	msg chan model.Msg
	// response
	send chan model.Msg

	watching map[uint]bool
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:      h,
		conn:     conn,
		msg:      make(chan model.Msg, 10),
		send:     make(chan model.Msg, sendQueue),
		watching: make(map[uint]bool),
	}
}

// 只在 hub goroutine 中调用
func (c *client) reply(m model.Msg) {
	select {
	case c.send <- m:
	default:
		log.Warn("websocket 发送队列已满，丢弃")
	}
}

func (c *client) handleResponse() {
	defer c.conn.Close()
	for reply := range c.send {
		if err := c.conn.WriteJSON(&reply); err != nil {
			log.Println("err: ", err)
			return
		}
	}
}

func (c *client) handleRequest() {
	for msg := range c.msg {
		switch msg.Type {
		case "watch", "unwatch":
			id, err := strconv.ParseUint(msg.Content, 10, 64)
			if err != nil {
				c.submit(request{kind: "reject", reason: "invalid job id"})
				continue
			}
			c.submit(request{kind: msg.Type, jobID: uint(id)})
		default:
			log.Println("no such type")
			c.submit(request{kind: "reject", reason: "no such type"})
		}
	}
}

// 回复也经由 hub 投递，send 只由 hub 关闭
func (c *client) submit(r request) {
	r.c = c
	select {
	case c.hub.requests <- r:
	case <-c.hub.done:
	}
}

func (c *client) join() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

func (c *client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}
