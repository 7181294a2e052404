package chain

import (
	"errors"
	"fmt"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

var (
	// ErrEmptyChain is returned when a history has no blocks.
	ErrEmptyChain = errors.New("chain: empty history")
	// ErrChainBroken is returned when a block does not link to its predecessor.
	ErrChainBroken = errors.New("chain: hash link broken")
	// ErrHashMismatch is returned when a block's stored hash differs from its recomputed hash.
	ErrHashMismatch = errors.New("chain: block hash mismatch")
	// ErrTimestampRegression is returned when a block is older than its predecessor.
	ErrTimestampRegression = errors.New("chain: timestamp regression")
)

// Verify walks history and checks the genesis link, every previousHash link,
// every recomputed currentHash and timestamp ordering.
func Verify(h Hasher, history []ledger.Block) error {
	if len(history) == 0 {
		return ErrEmptyChain
	}
	prevHash := GenesisHash
	var prevTS int64
	for i := range history {
		blk := &history[i]
		if blk.PreviousHash != prevHash {
			return fmt.Errorf("block %d: %w", i, ErrChainBroken)
		}
		if i > 0 && blk.Timestamp < prevTS {
			return fmt.Errorf("block %d: %w", i, ErrTimestampRegression)
		}
		sum, err := HashBlock(h, blk)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if sum != blk.CurrentHash {
			return fmt.Errorf("block %d: %w", i, ErrHashMismatch)
		}
		prevHash = blk.CurrentHash
		prevTS = blk.Timestamp
	}
	return nil
}
