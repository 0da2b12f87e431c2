package txn

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitDiscardsLog(t *testing.T) {
	m := NewManager(4)
	tx := m.Begin("read_committed", 0)

	undoCalled := false
	tx.Append("create_node", func() error { undoCalled = true; return nil })

	require.NoError(t, m.Commit(tx.ID))
	assert.False(t, undoCalled)
	assert.Equal(t, StatusCommitted, tx.Status)

	assert.Error(t, m.Commit(tx.ID), "double commit must fail")
}

func TestRollbackAppliesInversesInReverseOrder(t *testing.T) {
	m := NewManager(4)
	tx := m.Begin("read_committed", 0)

	var order []int
	tx.Append("op1", func() error { order = append(order, 1); return nil })
	tx.Append("op2", func() error { order = append(order, 2); return nil })
	tx.Append("op3", func() error { order = append(order, 3); return nil })

	require.NoError(t, m.Rollback(tx.ID))
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Equal(t, StatusRolledBack, tx.Status)

	assert.Error(t, m.Rollback(tx.ID), "rollback of an already-finished transaction must fail")
}

func TestRollbackWithoutBeginFails(t *testing.T) {
	m := NewManager(4)
	assert.Error(t, m.Rollback("nonexistent"))
}

func TestRollbackReportsFirstUndoError(t *testing.T) {
	m := NewManager(4)
	tx := m.Begin("read_committed", 0)
	tx.Append("bad", func() error { return errors.New("boom") })

	err := m.Rollback(tx.ID)
	assert.Error(t, err)
	assert.Equal(t, StatusRolledBack, tx.Status, "transaction is still marked rolled back despite undo failure")
}

func TestSnapshotBoundedFIFO(t *testing.T) {
	m := NewManager(2)
	m.Snapshot("s1", 1)
	m.Snapshot("s2", 2)
	m.Snapshot("s3", 3)

	snaps := m.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, "s2", snaps[0].Label)
	assert.Equal(t, "s3", snaps[1].Label)
}

func TestTransactionExpired(t *testing.T) {
	m := NewManager(0)
	tx := m.Begin("read_committed", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.True(t, tx.Expired())

	tx2 := m.Begin("read_committed", 0)
	assert.False(t, tx2.Expired(), "zero timeout means no expiry")
}
