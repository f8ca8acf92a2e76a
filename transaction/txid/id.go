package txid

// TxID is transaction id
// this is fixed-width and can wrap around, so the id space is a circle.
// two ids farther apart than half the space are not meaningfully ordered.
type TxID uint32

const (
	// InvalidTxID means no transaction. a transaction which has not written
	// anything yet keeps InvalidTxID until its first write.
	InvalidTxID TxID = 0
	// BootstrapTxID is the id which created the initial records.
	// records created by it are visible to everyone.
	BootstrapTxID TxID = 1
	// FrozenTxID marks an id old enough that every live snapshot sees it.
	// frozen ids must be smaller than the first normal id.
	FrozenTxID TxID = 2
	// FirstTxID is the first id handed out by the allocator.
	FirstTxID TxID = 3
)

// IsNormal checks whether the id is an ordinary allocated id (not a sentinel)
func (id TxID) IsNormal() bool {
	return id >= FirstTxID
}

// IsValid checks whether the id has been assigned
func (id TxID) IsValid() bool {
	return id != InvalidTxID
}

// IsEqual checks whether the id is equal to the compared
func (id TxID) IsEqual(compared TxID) bool {
	return id == compared
}

// IsFollows checks whether id comes after compared on the id circle.
// sentinel ids never wrap so they are compared numerically.
// the comparison is only meaningful while the two ids are within half the
// id space of each other; the signed-diff trick below encodes that window.
func (id TxID) IsFollows(compared TxID) bool {
	if !id.IsNormal() || !compared.IsNormal() {
		return id > compared
	}
	diff := id - compared
	return int32(diff) > 0
}

// Precedes checks whether id comes before compared on the id circle.
func (id TxID) Precedes(compared TxID) bool {
	if !id.IsNormal() || !compared.IsNormal() {
		return id < compared
	}
	diff := compared - id
	return int32(diff) > 0
}

// Advance returns the next id on the circle, skipping the sentinels
// at wraparound.
func (id TxID) Advance() TxID {
	id++
	if !id.IsNormal() {
		return FirstTxID
	}
	return id
}
