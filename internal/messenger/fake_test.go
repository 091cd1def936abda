package messenger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zhubert/parley/internal/backend"
)

var errBoom = errors.New("boom")

// fakeSub is a subscription whose snapshots are pushed by the test.
type fakeSub struct {
	token     backend.Token
	query     backend.Query
	ch        chan backend.Snapshot
	cancelled bool
}

func (s *fakeSub) Token() backend.Token                { return s.token }
func (s *fakeSub) Snapshots() <-chan backend.Snapshot { return s.ch }
func (s *fakeSub) Cancel()                            { s.cancelled = true }

// snap builds a snapshot for s from docs.
func (s *fakeSub) snap(docs ...backend.Document) backend.Snapshot {
	return backend.Snapshot{Token: s.token, Docs: docs}
}

type call struct {
	op     string
	path   string
	fields backend.Fields
}

// fakeStore records every call and serves documents from memory. Failures
// are injected per operation name.
type fakeStore struct {
	mu    sync.Mutex
	docs  map[string]backend.Fields
	calls []call
	subs  []*fakeSub
	fail  map[string]error
	gets  int
	next  int
	block chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]backend.Fields), fail: make(map[string]error)}
}

func (f *fakeStore) record(op, path string, fields backend.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op, path, fields})
	return f.fail[op]
}

func (f *fakeStore) callsOf(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) put(path string, fields backend.Fields) {
	f.mu.Lock()
	f.docs[path] = fields
	f.mu.Unlock()
}

func (f *fakeStore) Subscribe(_ context.Context, q backend.Query) (backend.Subscription, error) {
	if err := f.record("subscribe", q.Collection, nil); err != nil {
		return nil, err
	}
	sub := &fakeSub{token: backend.NextToken(), query: q, ch: make(chan backend.Snapshot, 1)}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeStore) Get(_ context.Context, path string) (backend.Document, error) {
	if err := f.record("get", path, nil); err != nil {
		return backend.Document{}, err
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	fields, ok := f.docs[path]
	if !ok {
		return backend.Document{}, fmt.Errorf("%w: %s", backend.ErrNotFound, path)
	}
	_, id, _ := backend.SplitPath(path)
	return backend.Document{ID: id, Path: path, Fields: fields}, nil
}

func (f *fakeStore) Create(_ context.Context, collection string, fields backend.Fields) (string, error) {
	if err := f.record("create", collection, fields); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("doc-%d", f.next)
	f.docs[backend.DocPath(collection, id)] = fields
	return id, nil
}

func (f *fakeStore) Set(_ context.Context, path string, fields backend.Fields) error {
	if err := f.record("set", path, fields); err != nil {
		return err
	}
	f.put(path, fields)
	return nil
}

func (f *fakeStore) SetIfAbsent(_ context.Context, path string, fields backend.Fields) (bool, error) {
	if err := f.record("setIfAbsent", path, fields); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[path]; ok {
		return false, nil
	}
	f.docs[path] = fields
	return true, nil
}

func (f *fakeStore) Update(_ context.Context, path string, fields backend.Fields) error {
	if err := f.record("update", path, fields); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	base, ok := f.docs[path]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrNotFound, path)
	}
	f.docs[path] = backend.Merge(base, fields)
	return nil
}

func (f *fakeStore) Query(_ context.Context, q backend.Query) ([]backend.Document, error) {
	if err := f.record("query", q.Collection, nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []backend.Document
	for path, fields := range f.docs {
		coll, id, err := backend.SplitPath(path)
		if err != nil || coll != q.Collection || !q.Matches(fields) {
			continue
		}
		docs = append(docs, backend.Document{ID: id, Path: path, Fields: fields})
	}
	return q.Run(docs), nil
}

// fakeAuth records identity updates.
type fakeAuth struct {
	current *backend.Identity
	updates []backend.IdentityUpdate
	fail    error
}

func (a *fakeAuth) SignIn(context.Context, string, string) (backend.Identity, error) {
	return backend.Identity{}, errBoom
}

func (a *fakeAuth) SignUp(context.Context, string, string, string) (backend.Identity, error) {
	return backend.Identity{}, errBoom
}

func (a *fakeAuth) SignOut(context.Context) error { a.current = nil; return nil }

func (a *fakeAuth) CurrentUser() *backend.Identity { return a.current }

func (a *fakeAuth) OnIdentityChange(fn func(*backend.Identity)) func() {
	fn(a.current)
	return func() {}
}

func (a *fakeAuth) UpdateIdentity(_ context.Context, u backend.IdentityUpdate) error {
	if a.fail != nil {
		return a.fail
	}
	a.updates = append(a.updates, u)
	return nil
}

// fakeBlobs stores uploads in memory.
type fakeBlobs struct {
	uploads map[string][]byte
	fail    error
}

func (b *fakeBlobs) Upload(_ context.Context, path string, data []byte) (backend.Handle, error) {
	if b.fail != nil {
		return backend.Handle{}, b.fail
	}
	if b.uploads == nil {
		b.uploads = make(map[string][]byte)
	}
	b.uploads[path] = data
	return backend.Handle{Path: path, Size: int64(len(data))}, nil
}

func (b *fakeBlobs) RetrievalURL(_ context.Context, h backend.Handle) (string, error) {
	return "https://blobs.test/" + h.Path, nil
}

// Document builders.

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func at(minutes int) string {
	return backend.FormatTime(epoch.Add(time.Duration(minutes) * time.Minute))
}

func chatDoc(id string, fields backend.Fields) backend.Document {
	return backend.Document{ID: id, Path: backend.ChatPath(id), Fields: fields}
}

func directDoc(id, a, b string, created int) backend.Document {
	return chatDoc(id, backend.Fields{
		"kind":         "direct",
		"participants": []any{a, b},
		"createdAt":    at(created),
		"createdBy":    a,
	})
}

func messageDoc(id, sender, text string, sent int, seq int64) backend.Document {
	f := backend.Fields{"text": text, "senderId": sender}
	if sent >= 0 {
		f["sentAt"] = at(sent)
	}
	return backend.Document{ID: id, Seq: seq, Fields: f}
}
