package snapshot

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/kmuto-dev/mvdb/transaction/clog"
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// TestingNewManager initializes a manager with the given registry content
// and latest-completed id, over a temporary commit log.
func TestingNewManager(t *testing.T, xip []txid.TxID, lcTxID txid.TxID) (*Manager, error) {
	cm, err := clog.TestingNewManager(t)
	if err != nil {
		return nil, errors.Wrap(err, "clog.TestingNewManager failed")
	}
	m := NewManager(txid.NewManager(), cm)
	for _, id := range xip {
		m.inProgressTxIDs[id] = struct{}{}
	}
	if lcTxID.IsValid() {
		m.latestCompletedTxID = lcTxID
	}
	return m, nil
}
