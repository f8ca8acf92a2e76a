package transaction

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/kmuto-dev/mvdb/transaction/clog"
	"github.com/kmuto-dev/mvdb/transaction/snapshot"
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// TestingNewManager initializes a transaction manager over a temporary
// commit log and a fresh id allocator.
func TestingNewManager(t *testing.T) (*Manager, error) {
	cm, err := clog.TestingNewManager(t)
	if err != nil {
		return nil, errors.Wrap(err, "clog.TestingNewManager failed")
	}
	sm := snapshot.NewManager(txid.NewManager(), cm)
	return NewManager(cm, sm), nil
}
