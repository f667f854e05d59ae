package group

// Scheme is the systematic erasure code, treated as a black box.
type Scheme interface {
	// Encode returns numberOfRepair recovery symbols for the group's
	// originals. Every entry of originals must be non-nil and the same
	// length (callers pad first, see PadOriginal).
	Encode(originals [][]byte, numberOfRepair int) ([][]byte, error)

	// Decode reconstructs the missing entries of originals (marked nil),
	// mutating originals in place and returning the recovered entries in
	// ascending index order. Only called when CanDecode reports true.
	Decode(originals []*Symbol, recovery []*Symbol, totalOriginals int) ([]*Symbol, error)

	CanDecode(presentOriginals, presentRecovery, totalOriginals int) bool
}
