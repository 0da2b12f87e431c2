package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/graphdb/internal/gderrors"
	"github.com/cuemby/graphdb/pkg/graph"
	"github.com/cuemby/graphdb/pkg/values"
)

var (
	bucketNodes = []byte("N")
	bucketRels  = []byte("R")
	bucketAdjO  = []byte("AO")
	bucketAdjI  = []byte("AI")
	bucketMeta  = []byte("M")

	metaNextNodeID = []byte("next_node_id")
	metaNextRelID  = []byte("next_rel_id")
)

// nodeRecord and relRecord are the on-disk JSON payloads stored under the
// N/ and R/ buckets; the id itself lives in the key, not the value.
type nodeRecord struct {
	Labels []string          `json:"labels"`
	Props  values.Properties `json:"props"`
}

type relRecord struct {
	Start int64             `json:"start"`
	End   int64             `json:"end"`
	Type  string            `json:"type"`
	Props values.Properties `json:"props"`
}

// BoltEngine is a go.etcd.io/bbolt-backed Engine. Keys are big-endian u64
// ids so bucket cursor scans naturally yield ascending id order (spec §6).
type BoltEngine struct {
	db *bolt.DB
}

// NewBoltEngine opens (creating if absent) a bbolt database rooted at
// dataDir/graphdb.db and ensures the fixed bucket set exists.
func NewBoltEngine(dataDir string) (*BoltEngine, error) {
	dbPath := filepath.Join(dataDir, "graphdb.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, gderrors.StorageError("failed to open database", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketNodes, bucketRels, bucketAdjO, bucketAdjI, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, gderrors.StorageError("failed to initialize buckets", err)
	}

	return &BoltEngine{db: db}, nil
}

func idKey(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func adjKey(nodeID, relID int64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(nodeID))
	binary.BigEndian.PutUint64(b[8:], uint64(relID))
	return b
}

func decodeU64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (e *BoltEngine) nextID(tx *bolt.Tx, metaKey []byte) (int64, error) {
	b := tx.Bucket(bucketMeta)
	cur := decodeU64(b.Get(metaKey))
	cur++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(cur))
	if err := b.Put(metaKey, buf); err != nil {
		return 0, err
	}
	return cur, nil
}

func (e *BoltEngine) bumpIDFloor(tx *bolt.Tx, metaKey []byte, id int64) error {
	b := tx.Bucket(bucketMeta)
	cur := decodeU64(b.Get(metaKey))
	if id <= cur {
		return nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return b.Put(metaKey, buf)
}

func (e *BoltEngine) PutNode(id int64, labels []string, props values.Properties) (int64, error) {
	var assigned int64
	err := e.db.Update(func(tx *bolt.Tx) error {
		var err error
		if id <= 0 {
			assigned, err = e.nextID(tx, metaNextNodeID)
			if err != nil {
				return err
			}
		} else {
			assigned = id
			if err := e.bumpIDFloor(tx, metaNextNodeID, id); err != nil {
				return err
			}
		}

		dedup := make([]string, 0, len(labels))
		seen := make(map[string]bool, len(labels))
		for _, l := range labels {
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			dedup = append(dedup, l)
		}

		data, err := json.Marshal(nodeRecord{Labels: dedup, Props: props.Clone()})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketNodes).Put(idKey(assigned), data)
	})
	if err != nil {
		return 0, gderrors.StorageError("put node failed", err)
	}
	return assigned, nil
}

func (e *BoltEngine) GetNode(id int64) (*graph.Node, bool, error) {
	var n *graph.Node
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get(idKey(id))
		if data == nil {
			return nil
		}
		var rec nodeRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		n = &graph.Node{ID: id, Labels: rec.Labels, Props: rec.Props}
		return nil
	})
	if err != nil {
		return nil, false, gderrors.StorageError("get node failed", err)
	}
	return n, n != nil, nil
}

func (e *BoltEngine) DeleteNode(id int64) (bool, error) {
	var existed bool
	err := e.db.Update(func(tx *bolt.Tx) error {
		nb := tx.Bucket(bucketNodes)
		if nb.Get(idKey(id)) == nil {
			return nil
		}
		existed = true

		relBucket := tx.Bucket(bucketRels)
		ao := tx.Bucket(bucketAdjO)
		ai := tx.Bucket(bucketAdjI)

		prefix := idKey(id)
		for _, adjBucket := range []*bolt.Bucket{ao, ai} {
			c := adjBucket.Cursor()
			var toDelete [][]byte
			for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
				toDelete = append(toDelete, append([]byte{}, k...))
			}
			for _, k := range toDelete {
				if err := adjBucket.Delete(k); err != nil {
					return err
				}
			}
		}

		// Remove relationship records incident to id, and their mirror
		// entries in the other node's adjacency bucket.
		if err := e.removeIncidentRels(tx, relBucket, ao, ai, id); err != nil {
			return err
		}

		return nb.Delete(idKey(id))
	})
	if err != nil {
		return false, gderrors.StorageError("delete node failed", err)
	}
	return existed, nil
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// removeIncidentRels deletes every relationship record touching nodeID and
// the corresponding mirror adjacency entries on the far side.
func (e *BoltEngine) removeIncidentRels(tx *bolt.Tx, relBucket, ao, ai *bolt.Bucket, nodeID int64) error {
	var rels []relRecord
	var relIDs []int64

	relBucket.ForEach(func(k, v []byte) error {
		var rec relRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		if rec.Start == nodeID || rec.End == nodeID {
			rels = append(rels, rec)
			relIDs = append(relIDs, decodeU64(k))
		}
		return nil
	})

	for i, rec := range rels {
		relID := relIDs[i]
		if err := relBucket.Delete(idKey(relID)); err != nil {
			return err
		}
		if rec.Start != nodeID {
			if err := ao.Delete(adjKey(rec.Start, relID)); err != nil {
				return err
			}
		}
		if rec.End != nodeID {
			if err := ai.Delete(adjKey(rec.End, relID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *BoltEngine) UpdateNodeProps(id int64, patch values.Properties) (bool, error) {
	var existed bool
	err := e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get(idKey(id))
		if data == nil {
			return nil
		}
		existed = true
		var rec nodeRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.Props = rec.Props.Merge(patch)
		out, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(idKey(id), out)
	})
	if err != nil {
		return false, gderrors.StorageError("update node props failed", err)
	}
	return existed, nil
}

func (e *BoltEngine) PutRel(id, start, end int64, relType string, props values.Properties) (int64, error) {
	var assigned int64
	var notFound *gderrors.Error
	err := e.db.Update(func(tx *bolt.Tx) error {
		nb := tx.Bucket(bucketNodes)
		if nb.Get(idKey(start)) == nil {
			notFound = gderrors.NotFound("node", start)
			return notFound
		}
		if nb.Get(idKey(end)) == nil {
			notFound = gderrors.NotFound("node", end)
			return notFound
		}

		var err error
		if id <= 0 {
			assigned, err = e.nextID(tx, metaNextRelID)
			if err != nil {
				return err
			}
		} else {
			assigned = id
			if err := e.bumpIDFloor(tx, metaNextRelID, id); err != nil {
				return err
			}
		}

		data, err := json.Marshal(relRecord{Start: start, End: end, Type: relType, Props: props.Clone()})
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketRels).Put(idKey(assigned), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketAdjO).Put(adjKey(start, assigned), []byte{}); err != nil {
			return err
		}
		return tx.Bucket(bucketAdjI).Put(adjKey(end, assigned), []byte{})
	})
	if notFound != nil {
		return 0, notFound
	}
	if err != nil {
		return 0, gderrors.StorageError("put relationship failed", err)
	}
	return assigned, nil
}

func (e *BoltEngine) GetRel(id int64) (*graph.Relationship, bool, error) {
	var r *graph.Relationship
	err := e.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRels).Get(idKey(id))
		if data == nil {
			return nil
		}
		var rec relRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		r = &graph.Relationship{ID: id, Start: rec.Start, End: rec.End, Type: rec.Type, Props: rec.Props}
		return nil
	})
	if err != nil {
		return nil, false, gderrors.StorageError("get relationship failed", err)
	}
	return r, r != nil, nil
}

func (e *BoltEngine) DeleteRel(id int64) (bool, error) {
	var existed bool
	err := e.db.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket(bucketRels)
		data := rb.Get(idKey(id))
		if data == nil {
			return nil
		}
		existed = true
		var rec relRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := tx.Bucket(bucketAdjO).Delete(adjKey(rec.Start, id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketAdjI).Delete(adjKey(rec.End, id)); err != nil {
			return err
		}
		return rb.Delete(idKey(id))
	})
	if err != nil {
		return false, gderrors.StorageError("delete relationship failed", err)
	}
	return existed, nil
}

func (e *BoltEngine) UpdateRelProps(id int64, patch values.Properties) (bool, error) {
	var existed bool
	err := e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRels)
		data := b.Get(idKey(id))
		if data == nil {
			return nil
		}
		existed = true
		var rec relRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.Props = rec.Props.Merge(patch)
		out, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(idKey(id), out)
	})
	if err != nil {
		return false, gderrors.StorageError("update relationship props failed", err)
	}
	return existed, nil
}

func (e *BoltEngine) scanAdjacency(bucket []byte, nodeID int64) ([]int64, error) {
	var ids []int64
	err := e.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		prefix := idKey(nodeID)
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			ids = append(ids, decodeU64(k[8:]))
		}
		return nil
	})
	if err != nil {
		return nil, gderrors.StorageError("adjacency scan failed", err)
	}
	return ids, nil
}

func (e *BoltEngine) Out(nodeID int64) ([]int64, error) { return e.scanAdjacency(bucketAdjO, nodeID) }
func (e *BoltEngine) In(nodeID int64) ([]int64, error)  { return e.scanAdjacency(bucketAdjI, nodeID) }

func (e *BoltEngine) IterNodes(fn func(*graph.Node) error) error {
	return e.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var rec nodeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			return fn(&graph.Node{ID: decodeU64(k), Labels: rec.Labels, Props: rec.Props})
		})
	})
}

func (e *BoltEngine) IterRels(fn func(*graph.Relationship) error) error {
	return e.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRels).ForEach(func(k, v []byte) error {
			var rec relRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			return fn(&graph.Relationship{ID: decodeU64(k), Start: rec.Start, End: rec.End, Type: rec.Type, Props: rec.Props})
		})
	})
}

func (e *BoltEngine) NodeCount() (int64, error) {
	var n int64
	err := e.db.View(func(tx *bolt.Tx) error {
		n = int64(tx.Bucket(bucketNodes).Stats().KeyN)
		return nil
	})
	return n, err
}

func (e *BoltEngine) RelCount() (int64, error) {
	var n int64
	err := e.db.View(func(tx *bolt.Tx) error {
		n = int64(tx.Bucket(bucketRels).Stats().KeyN)
		return nil
	})
	return n, err
}

// boltTx wraps a live bbolt write transaction. Engine.Begin on BoltEngine
// is used only by pkg/txn for the logical undo-log layer (spec §4.1's
// "best-effort, not full ACID" note) — it is not exposed as a nested raw
// bbolt transaction to callers.
type boltTx struct {
	tx *bolt.Tx
}

func (e *BoltEngine) Begin() (Tx, error) {
	tx, err := e.db.Begin(true)
	if err != nil {
		return nil, gderrors.TransactionError(err.Error())
	}
	return &boltTx{tx: tx}, nil
}

func (t *boltTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return gderrors.TransactionError(err.Error())
	}
	return nil
}

func (t *boltTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return gderrors.TransactionError(err.Error())
	}
	return nil
}

// Flush forces bbolt to fsync pending writes to disk.
func (e *BoltEngine) Flush() error {
	return e.db.Sync()
}

func (e *BoltEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return gderrors.StorageError("close failed", err)
	}
	return nil
}
