package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zhubert/parley/internal/auth"
	"github.com/zhubert/parley/internal/backend"
	"github.com/zhubert/parley/internal/blob"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
	"github.com/zhubert/parley/internal/store"
)

const (
	maxFrameSize = blob.MaxSize*2 + 64<<10 // base64 upload plus envelope
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // terminal clients send no Origin
	},
}

// Server relays backend operations for websocket clients.
type Server struct {
	store *store.Store
	auth  *auth.Service
	blobs *blob.FileStore
	log   *slog.Logger

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// NewServer creates a relay over the given collaborators.
func NewServer(st *store.Store, svc *auth.Service, blobs *blob.FileStore) *Server {
	return &Server{
		store: st,
		auth:  svc,
		blobs: blobs,
		log:   logger.ComponentLogger("Relay"),
		conns: make(map[*conn]struct{}),
	}
}

// Handler returns the gin engine serving /ws, /blobs and /healthz.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.clientCount()})
	})
	r.GET("/ws", s.serveWS)
	r.GET("/blobs/*path", func(c *gin.Context) {
		full, err := s.blobs.Open(strings.TrimPrefix(c.Param("path"), "/"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.File(full)
	})
	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
}

func (s *Server) serveWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(context.Background())
	cn := &conn{
		srv:    s,
		ws:     ws,
		send:   make(chan Frame, sendBuffer),
		subs:   make(map[backend.Token]backend.Subscription),
		ctx:    ctx,
		cancel: cancel,
		log:    s.log.With("remote", c.Request.RemoteAddr),
	}

	s.mu.Lock()
	s.conns[cn] = struct{}{}
	s.mu.Unlock()
	cn.log.Info("client connected")

	go cn.writePump()
	cn.readPump()
}

// conn is one client connection.
type conn struct {
	srv    *Server
	ws     *websocket.Conn
	send   chan Frame
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	mu       sync.Mutex
	identity *backend.Identity
	subs     map[backend.Token]backend.Subscription
	once     sync.Once
}

func (c *conn) close() {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		for token, sub := range c.subs {
			sub.Cancel()
			delete(c.subs, token)
		}
		c.mu.Unlock()
		c.ws.Close()

		c.srv.mu.Lock()
		delete(c.srv.conns, c)
		c.srv.mu.Unlock()
		c.log.Info("client disconnected")
	})
}

func (c *conn) readPump() {
	defer c.close()
	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("read failed", "error", err)
			}
			return
		}
		c.handle(f)
	}
}

func (c *conn) writePump() {
	for {
		select {
		case f := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				c.log.Warn("write failed", "error", err)
				c.close()
				return
			}
		case <-c.ctx.Done():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *conn) push(f Frame) {
	select {
	case c.send <- f:
	case <-c.ctx.Done():
	}
}

func (c *conn) reply(req Frame, payload any, err error) {
	f := Frame{ID: req.ID, Type: TypeReply}
	if err != nil {
		f.Error = toWire(err)
	} else if payload != nil {
		data, merr := json.Marshal(payload)
		if merr != nil {
			f.Error = toWire(merr)
		} else {
			f.Payload = data
		}
	}
	if req.ID != "" {
		c.push(f)
	}
}

func (c *conn) current() *backend.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// guard rejects unauthenticated requests and direct access to credentials.
func (c *conn) guard(op pErrors.Op, path string) error {
	if c.current() == nil {
		return pErrors.E(op, pErrors.KindAuth, backend.ErrUnauthorized)
	}
	if path == backend.Credentials || strings.HasPrefix(path, backend.Credentials+"/") {
		return pErrors.E(op, pErrors.KindPermission, path, backend.ErrUnauthorized)
	}
	return nil
}

func (c *conn) handle(f Frame) {
	ctx := c.ctx
	op := pErrors.Op("relay." + f.Type)

	decode := func(v any) error {
		if err := json.Unmarshal(f.Payload, v); err != nil {
			return pErrors.E(op, pErrors.KindInvalid, err)
		}
		return nil
	}

	switch f.Type {
	case TypeSignIn, TypeSignUp:
		var req credentialsRequest
		if err := decode(&req); err != nil {
			c.reply(f, nil, err)
			return
		}
		var (
			sess auth.Session
			err  error
		)
		if f.Type == TypeSignIn {
			sess, err = c.srv.auth.SignIn(ctx, req.Email, req.Password)
		} else {
			sess, err = c.srv.auth.SignUp(ctx, req.Email, req.Password, req.DisplayName)
		}
		c.signedIn(sess, err)
		c.reply(f, sess, err)

	case TypeResume:
		var req resumeRequest
		if err := decode(&req); err != nil {
			c.reply(f, nil, err)
			return
		}
		sess, err := c.srv.auth.Resume(ctx, req.Token)
		c.signedIn(sess, err)
		c.reply(f, sess, err)

	case TypeSignOut:
		c.mu.Lock()
		c.identity = nil
		for token, sub := range c.subs {
			sub.Cancel()
			delete(c.subs, token)
		}
		c.mu.Unlock()
		c.reply(f, nil, nil)

	case TypeUpdateIdent:
		var req backend.IdentityUpdate
		if err := decode(&req); err != nil {
			c.reply(f, nil, err)
			return
		}
		cur := c.current()
		if cur == nil {
			c.reply(f, nil, pErrors.E(op, pErrors.KindAuth, backend.ErrUnauthorized))
			return
		}
		id, err := c.srv.auth.UpdateIdentity(ctx, cur.Email, req)
		if err == nil {
			c.mu.Lock()
			c.identity = &id
			c.mu.Unlock()
		}
		c.reply(f, id, err)

	case TypeGet:
		var req pathRequest
		if err := decode(&req); err != nil {
			c.reply(f, nil, err)
			return
		}
		if err := c.guard(op, req.Path); err != nil {
			c.reply(f, nil, err)
			return
		}
		doc, err := c.srv.store.Get(ctx, req.Path)
		c.reply(f, doc, err)

	case TypeCreate:
		var req createRequest
		if err := decode(&req); err != nil {
			c.reply(f, nil, err)
			return
		}
		if err := c.guard(op, req.Collection); err != nil {
			c.reply(f, nil, err)
			return
		}
		id, err := c.srv.store.Create(ctx, req.Collection, req.Fields)
		c.reply(f, createReply{ID: id}, err)

	case TypeSet, TypeSetIfAbsent, TypeUpdate:
		var req pathRequest
		if err := decode(&req); err != nil {
			c.reply(f, nil, err)
			return
		}
		if err := c.guard(op, req.Path); err != nil {
			c.reply(f, nil, err)
			return
		}
		switch f.Type {
		case TypeSet:
			c.reply(f, nil, c.srv.store.Set(ctx, req.Path, req.Fields))
		case TypeSetIfAbsent:
			created, err := c.srv.store.SetIfAbsent(ctx, req.Path, req.Fields)
			c.reply(f, setIfAbsentReply{Created: created}, err)
		default:
			c.reply(f, nil, c.srv.store.Update(ctx, req.Path, req.Fields))
		}

	case TypeQuery:
		var q backend.Query
		if err := decode(&q); err != nil {
			c.reply(f, nil, err)
			return
		}
		if err := c.guard(op, q.Collection); err != nil {
			c.reply(f, nil, err)
			return
		}
		docs, err := c.srv.store.Query(ctx, q)
		c.reply(f, docs, err)

	case TypeSubscribe:
		var q backend.Query
		if err := decode(&q); err != nil {
			c.reply(f, nil, err)
			return
		}
		if err := c.guard(op, q.Collection); err != nil {
			c.reply(f, nil, err)
			return
		}
		c.subscribe(f, q)

	case TypeUnsubscribe:
		c.mu.Lock()
		sub, ok := c.subs[f.Token]
		delete(c.subs, f.Token)
		c.mu.Unlock()
		if ok {
			sub.Cancel()
		}
		c.reply(f, nil, nil)

	case TypeUpload:
		var req uploadRequest
		if err := decode(&req); err != nil {
			c.reply(f, nil, err)
			return
		}
		if err := c.guard(op, ""); err != nil {
			c.reply(f, nil, err)
			return
		}
		h, err := c.srv.blobs.Upload(ctx, req.Path, req.Data)
		c.reply(f, h, err)

	case TypeURL:
		var h backend.Handle
		if err := decode(&h); err != nil {
			c.reply(f, nil, err)
			return
		}
		if err := c.guard(op, ""); err != nil {
			c.reply(f, nil, err)
			return
		}
		u, err := c.srv.blobs.RetrievalURL(ctx, h)
		c.reply(f, urlReply{URL: u}, err)

	default:
		c.reply(f, nil, pErrors.E(op, pErrors.KindInvalid, "unknown frame type "+f.Type))
	}
}

func (c *conn) signedIn(sess auth.Session, err error) {
	if err != nil {
		return
	}
	c.mu.Lock()
	id := sess.Identity
	c.identity = &id
	c.mu.Unlock()
	c.log.Info("signed in", "uid", id.ID)
}

func (c *conn) subscribe(f Frame, q backend.Query) {
	if f.Token == 0 {
		c.reply(f, nil, pErrors.E(pErrors.Op("relay.subscribe"), pErrors.KindInvalid, "missing subscription token"))
		return
	}
	sub, err := c.srv.store.Subscribe(c.ctx, q)
	if err != nil {
		c.reply(f, nil, err)
		return
	}

	c.mu.Lock()
	if old, ok := c.subs[f.Token]; ok {
		old.Cancel()
	}
	c.subs[f.Token] = sub
	c.mu.Unlock()

	// reply before the forwarder starts so the client sees its ack first
	c.reply(f, nil, nil)

	go func() {
		for snap := range sub.Snapshots() {
			data, err := json.Marshal(snapshotPayload{Docs: snap.Docs, Error: toWire(snap.Err)})
			if err != nil {
				c.log.Error("encode snapshot", "error", err)
				continue
			}
			c.push(Frame{Type: TypeSnapshot, Token: f.Token, Payload: data})
		}
		c.push(Frame{Type: TypeClosed, Token: f.Token})
	}()
}
