package txid

// TestingNewManager initializes a manager whose next id is nextTxID.
func TestingNewManager(nextTxID TxID, wrapped bool) *Manager {
	tm := &Manager{wrapped: wrapped}
	tm.nextTxID.Store(uint32(nextTxID))
	return tm
}
