package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhubert/parley/internal/auth"
	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

// Client implements backend.Auth, backend.DocumentStore and
// backend.BlobStore over one relay connection. The connection is not
// re-established after loss; every later call fails with KindNetwork.
type Client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Frame
	subs    map[backend.Token]*remoteSub
	lost    error
	done    chan struct{}

	identMu   sync.Mutex
	current   *backend.Identity
	token     string
	listeners auth.Listeners
}

var (
	_ backend.Auth          = (*Client)(nil)
	_ backend.DocumentStore = (*Client)(nil)
	_ backend.BlobStore     = (*Client)(nil)
)

// Dial connects to a relay websocket URL such as ws://host:7420/ws.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, pErrors.E(pErrors.Op("relay.Dial"), pErrors.KindNetwork, url, err)
	}
	ws.SetReadLimit(maxFrameSize)

	c := &Client{
		ws:      ws,
		pending: make(map[string]chan Frame),
		subs:    make(map[backend.Token]*remoteSub),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close shuts the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.ws.Close()
	<-c.done
	return err
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop() {
	log := logger.ComponentLogger("RelayClient")
	var err error
	for {
		var f Frame
		if err = c.ws.ReadJSON(&f); err != nil {
			break
		}
		switch f.Type {
		case TypeReply:
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			delete(c.pending, f.ID)
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case TypeSnapshot:
			c.mu.Lock()
			sub := c.subs[f.Token]
			c.mu.Unlock()
			if sub == nil {
				continue
			}
			var p snapshotPayload
			if uerr := json.Unmarshal(f.Payload, &p); uerr != nil {
				log.Error("bad snapshot frame", "error", uerr)
				continue
			}
			snap := backend.Snapshot{Docs: p.Docs}
			if p.Error != nil {
				snap.Err = fromWire(pErrors.Op("relay.snapshot"), p.Error)
			}
			sub.deliver(snap)
		case TypeClosed:
			c.mu.Lock()
			sub := c.subs[f.Token]
			delete(c.subs, f.Token)
			c.mu.Unlock()
			if sub != nil {
				sub.close()
			}
		}
	}

	log.Warn("connection lost", "error", err)
	lost := pErrors.ConnectionLost(err)

	c.mu.Lock()
	c.lost = lost
	pending := c.pending
	c.pending = make(map[string]chan Frame)
	subs := c.subs
	c.subs = make(map[backend.Token]*remoteSub)
	c.mu.Unlock()

	for id, ch := range pending {
		ch <- Frame{ID: id, Type: TypeReply, Error: toWire(lost)}
	}
	for _, sub := range subs {
		sub.close()
	}
	close(c.done)

	c.identMu.Lock()
	wasSignedIn := c.current != nil
	c.current = nil
	c.token = ""
	if wasSignedIn {
		c.listeners.Notify(nil)
	}
	c.identMu.Unlock()
}

func (c *Client) write(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(f)
}

// call sends a request and decodes the reply payload into out.
func (c *Client) call(ctx context.Context, typ string, token backend.Token, in, out any) error {
	op := pErrors.Op("relay." + typ)

	var payload json.RawMessage
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return pErrors.E(op, pErrors.KindInvalid, err)
		}
		payload = data
	}

	id := uuid.NewString()
	ch := make(chan Frame, 1)

	c.mu.Lock()
	if c.lost != nil {
		lost := c.lost
		c.mu.Unlock()
		return pErrors.E(op, lost)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(Frame{ID: id, Type: typ, Token: token, Payload: payload}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return pErrors.E(op, pErrors.KindNetwork, err)
	}

	select {
	case f := <-ch:
		if f.Error != nil {
			return fromWire(op, f.Error)
		}
		if out != nil && len(f.Payload) > 0 {
			if err := json.Unmarshal(f.Payload, out); err != nil {
				return pErrors.E(op, pErrors.KindInvalid, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return pErrors.E(op, pErrors.KindTimeout, ctx.Err())
	}
}

// Auth

func (c *Client) SignIn(ctx context.Context, email, password string) (backend.Identity, error) {
	var sess auth.Session
	if err := c.call(ctx, TypeSignIn, 0, credentialsRequest{Email: email, Password: password}, &sess); err != nil {
		return backend.Identity{}, err
	}
	c.setIdentity(&sess.Identity, sess.Token)
	return sess.Identity, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (backend.Identity, error) {
	var sess auth.Session
	req := credentialsRequest{Email: email, Password: password, DisplayName: displayName}
	if err := c.call(ctx, TypeSignUp, 0, req, &sess); err != nil {
		return backend.Identity{}, err
	}
	c.setIdentity(&sess.Identity, sess.Token)
	return sess.Identity, nil
}

// Resume signs in with a token from an earlier session.
func (c *Client) Resume(ctx context.Context, token string) (backend.Identity, error) {
	var sess auth.Session
	if err := c.call(ctx, TypeResume, 0, resumeRequest{Token: token}, &sess); err != nil {
		return backend.Identity{}, err
	}
	c.setIdentity(&sess.Identity, sess.Token)
	return sess.Identity, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	err := c.call(ctx, TypeSignOut, 0, nil, nil)
	// locally signed out regardless; the server drops the session with the
	// connection anyway
	c.setIdentity(nil, "")
	return err
}

func (c *Client) CurrentUser() *backend.Identity {
	c.identMu.Lock()
	defer c.identMu.Unlock()
	if c.current == nil {
		return nil
	}
	id := *c.current
	return &id
}

func (c *Client) OnIdentityChange(fn func(*backend.Identity)) (stop func()) {
	c.identMu.Lock()
	defer c.identMu.Unlock()
	return c.listeners.Add(fn, c.current)
}

func (c *Client) UpdateIdentity(ctx context.Context, update backend.IdentityUpdate) error {
	var id backend.Identity
	if err := c.call(ctx, TypeUpdateIdent, 0, update, &id); err != nil {
		return err
	}
	c.identMu.Lock()
	if c.current != nil && c.current.ID == id.ID {
		c.current = &id
	}
	c.identMu.Unlock()
	return nil
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.identMu.Lock()
	defer c.identMu.Unlock()
	return c.token
}

func (c *Client) setIdentity(id *backend.Identity, token string) {
	c.identMu.Lock()
	defer c.identMu.Unlock()
	if id != nil {
		cp := *id
		id = &cp
	}
	c.current = id
	c.token = token
	c.listeners.Notify(id)
}

// DocumentStore

func (c *Client) Subscribe(ctx context.Context, q backend.Query) (backend.Subscription, error) {
	sub := &remoteSub{
		client: c,
		token:  backend.NextToken(),
		ch:     make(chan backend.Snapshot, 1),
	}

	// registered before the request so the initial snapshot is not missed
	c.mu.Lock()
	c.subs[sub.token] = sub
	c.mu.Unlock()

	if err := c.call(ctx, TypeSubscribe, sub.token, q, nil); err != nil {
		c.mu.Lock()
		delete(c.subs, sub.token)
		c.mu.Unlock()
		sub.close()
		if pErrors.GetKind(err) == pErrors.KindNetwork {
			return nil, err
		}
		return nil, pErrors.SubscriptionFailed(q.Collection, err)
	}
	return sub, nil
}

func (c *Client) Get(ctx context.Context, path string) (backend.Document, error) {
	var doc backend.Document
	err := c.call(ctx, TypeGet, 0, pathRequest{Path: path}, &doc)
	return doc, err
}

func (c *Client) Create(ctx context.Context, collection string, fields backend.Fields) (string, error) {
	var reply createReply
	err := c.call(ctx, TypeCreate, 0, createRequest{Collection: collection, Fields: fields}, &reply)
	return reply.ID, err
}

func (c *Client) Set(ctx context.Context, path string, fields backend.Fields) error {
	return c.call(ctx, TypeSet, 0, pathRequest{Path: path, Fields: fields}, nil)
}

func (c *Client) SetIfAbsent(ctx context.Context, path string, fields backend.Fields) (bool, error) {
	var reply setIfAbsentReply
	err := c.call(ctx, TypeSetIfAbsent, 0, pathRequest{Path: path, Fields: fields}, &reply)
	return reply.Created, err
}

func (c *Client) Update(ctx context.Context, path string, fields backend.Fields) error {
	return c.call(ctx, TypeUpdate, 0, pathRequest{Path: path, Fields: fields}, nil)
}

func (c *Client) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	var docs []backend.Document
	err := c.call(ctx, TypeQuery, 0, q, &docs)
	return docs, err
}

// BlobStore

func (c *Client) Upload(ctx context.Context, path string, data []byte) (backend.Handle, error) {
	var h backend.Handle
	err := c.call(ctx, TypeUpload, 0, uploadRequest{Path: path, Data: data}, &h)
	return h, err
}

func (c *Client) RetrievalURL(ctx context.Context, h backend.Handle) (string, error) {
	var reply urlReply
	err := c.call(ctx, TypeURL, 0, h, &reply)
	return reply.URL, err
}

// remoteSub is the client side of a relayed live query.
type remoteSub struct {
	client *Client
	token  backend.Token

	mu     sync.Mutex
	ch     chan backend.Snapshot
	closed bool
}

func (s *remoteSub) Token() backend.Token                { return s.token }
func (s *remoteSub) Snapshots() <-chan backend.Snapshot { return s.ch }

func (s *remoteSub) deliver(snap backend.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	snap.Token = s.token
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (s *remoteSub) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	return true
}

// Cancel ends the subscription locally and tells the server.
func (s *remoteSub) Cancel() {
	if !s.close() {
		return
	}
	c := s.client
	c.mu.Lock()
	delete(c.subs, s.token)
	lost := c.lost
	c.mu.Unlock()
	if lost == nil {
		// fire and forget; the server needs no reply
		c.write(Frame{Type: TypeUnsubscribe, Token: s.token})
	}
}
