package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zhubert/parley/internal/backend"
)

// record is the stored form of a document.
type record struct {
	Seq    int64          `json:"seq"`
	Fields backend.Fields `json:"fields"`
}

// BoltEngine stores each collection in its own bucket, keyed by document id.
type BoltEngine struct {
	db *bbolt.DB
}

var _ Engine = (*BoltEngine)(nil)

// OpenBolt opens (or creates) a bbolt file at path.
func OpenBolt(path string) (*BoltEngine, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltEngine{db: db}, nil
}

func (e *BoltEngine) Get(_ context.Context, collection, id string) (backend.Document, error) {
	var doc backend.Document
	err := e.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return backend.ErrNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return backend.ErrNotFound
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		doc = toDocument(collection, id, rec)
		return nil
	})
	return doc, err
}

func (e *BoltEngine) Put(_ context.Context, collection, id string, fields backend.Fields, mode PutMode) (bool, error) {
	wrote := false
	err := e.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}

		rec, exists, err := readRecord(bucket, id)
		if err != nil {
			return err
		}
		switch mode {
		case PutCreate:
			if exists {
				return nil
			}
		case PutMerge:
			if !exists {
				return backend.ErrNotFound
			}
			fields = backend.Merge(rec.Fields, fields)
		}

		if !exists {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			rec.Seq = int64(seq)
		}
		rec.Fields = fields

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(id), data); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	return wrote, err
}

func readRecord(bucket *bbolt.Bucket, id string) (record, bool, error) {
	data := bucket.Get([]byte(id))
	if data == nil {
		return record{}, false, nil
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, false, err
	}
	return rec, true, nil
}

func (e *BoltEngine) List(_ context.Context, collection string) ([]backend.Document, error) {
	var docs []backend.Document
	err := e.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode %s/%s: %w", collection, k, err)
			}
			docs = append(docs, toDocument(collection, string(k), rec))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })
	return docs, nil
}

func (e *BoltEngine) Close() error {
	return e.db.Close()
}

func toDocument(collection, id string, rec record) backend.Document {
	if rec.Fields == nil {
		rec.Fields = backend.Fields{}
	}
	return backend.Document{
		ID:     id,
		Path:   backend.DocPath(collection, id),
		Seq:    rec.Seq,
		Fields: rec.Fields,
	}
}
