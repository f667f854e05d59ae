// Package schemes holds concrete group.Scheme implementations.
package schemes

import (
	"errors"

	"github.com/klauspost/reedsolomon"

	"github.com/catid/shorthair-go/internal/fec/group"
)

var (
	// ErrNoRepairSymbols: nothing to reconstruct from.
	ErrNoRepairSymbols = errors.New("reedsolomon: group carries no repair symbols")
	// ErrEmptyGroup: cannot encode a group with no originals.
	ErrEmptyGroup = errors.New("reedsolomon: cannot encode a group with zero original symbols")
)

// ReedSolomon wraps klauspost/reedsolomon, caching one reedsolomon.Encoder
// per distinct (k, r) shape seen so far, since the redundancy planner
// picks a fresh r for nearly every group.
type ReedSolomon struct {
	cache map[[2]int]reedsolomon.Encoder
}

var _ group.Scheme = &ReedSolomon{}

// New constructs a ReedSolomon scheme with an empty encoder cache.
func New() *ReedSolomon {
	return &ReedSolomon{cache: make(map[[2]int]reedsolomon.Encoder)}
}

func (rs *ReedSolomon) getEncoder(k, r int) (reedsolomon.Encoder, error) {
	key := [2]int{k, r}
	if enc, ok := rs.cache[key]; ok {
		return enc, nil
	}
	enc, err := reedsolomon.New(k, r)
	if err != nil {
		return nil, err
	}
	rs.cache[key] = enc
	return enc, nil
}

func (rs *ReedSolomon) Encode(originals [][]byte, numberOfRepair int) ([][]byte, error) {
	if len(originals) == 0 {
		return nil, ErrEmptyGroup
	}
	symbolLen := len(originals[0])
	shards := make([][]byte, len(originals)+numberOfRepair)
	copy(shards, originals)
	for i := len(originals); i < len(shards); i++ {
		shards[i] = make([]byte, symbolLen)
	}
	enc, err := rs.getEncoder(len(originals), numberOfRepair)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards[len(originals):], nil
}

func (rs *ReedSolomon) CanDecode(presentOriginals, presentRecovery, totalOriginals int) bool {
	return presentRecovery > 0 &&
		totalOriginals > 0 &&
		presentOriginals < totalOriginals &&
		presentOriginals+presentRecovery >= totalOriginals
}

func (rs *ReedSolomon) Decode(originals []*group.Symbol, recovery []*group.Symbol, totalOriginals int) ([]*group.Symbol, error) {
	if len(recovery) == 0 {
		return nil, ErrNoRepairSymbols
	}
	r := len(recovery)
	enc, err := rs.getEncoder(totalOriginals, r)
	if err != nil {
		return nil, err
	}
	shards := make([][]byte, totalOriginals+r)
	var missing []int
	for i := 0; i < totalOriginals; i++ {
		if i < len(originals) && originals[i] != nil {
			shards[i] = originals[i].Data
		} else {
			missing = append(missing, i)
		}
	}
	for i, sym := range recovery {
		if sym != nil {
			shards[totalOriginals+i] = sym.Data
		}
	}
	if err := enc.ReconstructData(shards); err != nil {
		return nil, err
	}
	recovered := make([]*group.Symbol, 0, len(missing))
	for _, i := range missing {
		sym := &group.Symbol{Data: shards[i]}
		if i < len(originals) {
			originals[i] = sym
		}
		recovered = append(recovered, sym)
	}
	return recovered, nil
}
