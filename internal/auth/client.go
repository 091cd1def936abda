package auth

import (
	"context"
	"sync"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
)

// Listeners delivers identity changes to registered callbacks. Each callback
// runs on its own goroutine and sees changes in the order they happened.
type Listeners struct {
	mu   sync.Mutex
	next int
	subs map[int]chan *backend.Identity
}

// Add registers fn and queues current as its first notification.
func (l *Listeners) Add(fn func(*backend.Identity), current *backend.Identity) (stop func()) {
	ch := make(chan *backend.Identity, 16)

	l.mu.Lock()
	if l.subs == nil {
		l.subs = make(map[int]chan *backend.Identity)
	}
	key := l.next
	l.next++
	l.subs[key] = ch
	ch <- clone(current)
	l.mu.Unlock()

	go func() {
		for id := range ch {
			fn(id)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, key)
			close(ch)
			l.mu.Unlock()
		})
	}
}

// Notify queues id for every listener.
func (l *Listeners) Notify(id *backend.Identity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs {
		ch <- clone(id)
	}
}

func clone(id *backend.Identity) *backend.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// Client implements backend.Auth in-process over a Service.
type Client struct {
	svc       *Service
	listeners Listeners

	mu      sync.Mutex
	current *backend.Identity
	token   string
}

var _ backend.Auth = (*Client)(nil)

// NewClient creates a signed-out client.
func NewClient(svc *Service) *Client {
	return &Client{svc: svc}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (backend.Identity, error) {
	sess, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return backend.Identity{}, err
	}
	c.set(&sess.Identity, sess.Token)
	return sess.Identity, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (backend.Identity, error) {
	sess, err := c.svc.SignUp(ctx, email, password, displayName)
	if err != nil {
		return backend.Identity{}, err
	}
	c.set(&sess.Identity, sess.Token)
	return sess.Identity, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.set(nil, "")
	return nil
}

func (c *Client) CurrentUser() *backend.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.current)
}

func (c *Client) OnIdentityChange(fn func(*backend.Identity)) (stop func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listeners.Add(fn, c.current)
}

func (c *Client) UpdateIdentity(ctx context.Context, update backend.IdentityUpdate) error {
	c.mu.Lock()
	cur := clone(c.current)
	c.mu.Unlock()
	if cur == nil {
		return pErrors.E(pErrors.Op("auth.UpdateIdentity"), pErrors.KindAuth, backend.ErrUnauthorized)
	}

	id, err := c.svc.UpdateIdentity(ctx, cur.Email, update)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// a sign-out may have raced the update
	if c.current != nil && c.current.ID == id.ID {
		c.current = &id
	}
	return nil
}

// Token returns the session token of the signed-in user.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) set(id *backend.Identity, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = clone(id)
	c.token = token
	c.listeners.Notify(c.current)
}
