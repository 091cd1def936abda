// Package store is parley's document store: a persistence Engine (bbolt or
// SQL) combined with a Hub that re-runs live queries after every write.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

// PutMode selects how Engine.Put treats an existing document.
type PutMode int

const (
	// PutReplace writes the document whether or not it exists.
	PutReplace PutMode = iota
	// PutCreate writes only if the document is absent.
	PutCreate
	// PutMerge merges into an existing document and fails if absent.
	PutMerge
)

// Engine persists documents. Implementations assign each new document a
// sequence number that increases in arrival order within its collection;
// updates keep the original sequence.
type Engine interface {
	Get(ctx context.Context, collection, id string) (backend.Document, error)
	// Put reports whether anything was written. PutCreate on an existing
	// document writes nothing; PutMerge on a missing one returns
	// backend.ErrNotFound.
	Put(ctx context.Context, collection, id string, fields backend.Fields, mode PutMode) (bool, error)
	// List returns every document in collection in arrival order.
	List(ctx context.Context, collection string) ([]backend.Document, error)
	Close() error
}

// Store implements backend.DocumentStore.
type Store struct {
	engine Engine
	hub    *Hub
	log    *slog.Logger

	// writes and snapshot evaluation are serialized so subscribers observe
	// snapshots in commit order
	mu  sync.Mutex
	now func() time.Time
}

var _ backend.DocumentStore = (*Store)(nil)

// New wraps an engine.
func New(engine Engine) *Store {
	return &Store{
		engine: engine,
		hub:    NewHub(),
		log:    logger.ComponentLogger("Store"),
		now:    time.Now,
	}
}

// Open opens the engine for driver. dataDir holds the bbolt and sqlite files;
// dsn is required for postgres and mysql.
func Open(driver, dsn, dataDir string) (*Store, error) {
	var (
		engine Engine
		err    error
	)
	switch driver {
	case "bolt", "":
		engine, err = OpenBolt(filepath.Join(dataDir, "parley.db"))
	case "sqlite3":
		if dsn == "" {
			dsn = filepath.Join(dataDir, "parley.sqlite")
		}
		engine, err = OpenSQL("sqlite3", dsn)
	case "postgres", "mysql":
		engine, err = OpenSQL(driver, dsn)
	default:
		return nil, pErrors.ConfigInvalid(fmt.Sprintf("unknown store driver %q", driver))
	}
	if err != nil {
		return nil, pErrors.E(pErrors.Op("store.Open"), pErrors.KindIO, fmt.Sprintf("open %s store", driver), err)
	}
	return New(engine), nil
}

// SetClock replaces the clock used for server timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Hub exposes the live-query hub.
func (s *Store) Hub() *Hub { return s.hub }

// Close cancels all subscriptions and closes the engine.
func (s *Store) Close() error {
	s.hub.CloseAll()
	return s.engine.Close()
}

// Subscribe registers a live query and delivers its current result set.
// ctx bounds the initial evaluation only; the subscription lives until Cancel.
func (s *Store) Subscribe(ctx context.Context, q backend.Query) (backend.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, pErrors.SubscriptionFailed(q.Collection, err)
	}

	s.mu.Lock()
	sub := s.hub.Register(q)
	s.evaluate(ctx, sub)
	s.mu.Unlock()

	s.log.Debug("subscribed", "collection", q.Collection, "token", sub.Token())
	return sub, nil
}

// evaluate runs sub's query and delivers the result. Must hold s.mu.
func (s *Store) evaluate(ctx context.Context, sub *Subscription) {
	docs, err := s.engine.List(ctx, sub.Query().Collection)
	if err != nil {
		s.log.Error("live query failed", "collection", sub.Query().Collection, "error", err)
		sub.deliver(backend.Snapshot{Err: pErrors.SubscriptionFailed(sub.Query().Collection, err)})
		return
	}
	sub.deliver(backend.Snapshot{Docs: sub.Query().Run(docs)})
}

// publish re-evaluates every live query on collection. Must hold s.mu.
func (s *Store) publish(collection string) {
	subs := s.hub.Watching(collection)
	if len(subs) == 0 {
		return
	}
	// The writer's context may already be done; snapshots belong to the
	// subscribers.
	ctx := context.Background()
	docs, err := s.engine.List(ctx, collection)
	for _, sub := range subs {
		if err != nil {
			sub.deliver(backend.Snapshot{Err: pErrors.SubscriptionFailed(collection, err)})
			continue
		}
		sub.deliver(backend.Snapshot{Docs: sub.Query().Run(docs)})
	}
}

// Get returns the document at path.
func (s *Store) Get(ctx context.Context, path string) (backend.Document, error) {
	const op = pErrors.Op("store.Get")
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return backend.Document{}, pErrors.E(op, pErrors.KindInvalid, err)
	}
	doc, err := s.engine.Get(ctx, collection, id)
	if errors.Is(err, backend.ErrNotFound) {
		return backend.Document{}, pErrors.E(op, pErrors.KindNotFound, path, err)
	}
	if err != nil {
		return backend.Document{}, pErrors.E(op, pErrors.KindIO, path, err)
	}
	return doc, nil
}

// Create adds a document with a generated id.
func (s *Store) Create(ctx context.Context, collection string, fields backend.Fields) (string, error) {
	if !backend.ValidCollection(collection) {
		return "", pErrors.E(pErrors.Op("store.Create"), pErrors.KindInvalid,
			fmt.Errorf("%w: %q", backend.ErrInvalidPath, collection))
	}
	id := uuid.NewString()
	if _, err := s.write(ctx, pErrors.Op("store.Create"), backend.DocPath(collection, id), fields, PutCreate); err != nil {
		return "", err
	}
	return id, nil
}

// Set writes fields at path, replacing any existing document.
func (s *Store) Set(ctx context.Context, path string, fields backend.Fields) error {
	_, err := s.write(ctx, pErrors.Op("store.Set"), path, fields, PutReplace)
	return err
}

// SetIfAbsent writes fields at path only if nothing is there yet.
func (s *Store) SetIfAbsent(ctx context.Context, path string, fields backend.Fields) (bool, error) {
	return s.write(ctx, pErrors.Op("store.SetIfAbsent"), path, fields, PutCreate)
}

// Update merges fields into the document at path.
func (s *Store) Update(ctx context.Context, path string, fields backend.Fields) error {
	_, err := s.write(ctx, pErrors.Op("store.Update"), path, fields, PutMerge)
	return err
}

func (s *Store) write(ctx context.Context, op pErrors.Op, path string, fields backend.Fields, mode PutMode) (bool, error) {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return false, pErrors.E(op, pErrors.KindInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := backend.ResolveServerTimestamps(fields, s.now())
	wrote, err := s.engine.Put(ctx, collection, id, resolved, mode)
	if errors.Is(err, backend.ErrNotFound) {
		return false, pErrors.E(op, pErrors.KindNotFound, path, err)
	}
	if err != nil {
		return false, pErrors.WriteFailed(op, path, err)
	}
	if wrote {
		s.publish(collection)
	}
	return wrote, nil
}

// Query runs q once.
func (s *Store) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, pErrors.E(pErrors.Op("store.Query"), pErrors.KindInvalid, err)
	}
	docs, err := s.engine.List(ctx, q.Collection)
	if err != nil {
		return nil, pErrors.E(pErrors.Op("store.Query"), pErrors.KindIO, q.Collection, err)
	}
	return q.Run(docs), nil
}
