package chain

import (
	"time"

	"nanochain/block"
	"nanochain/errors"
	"nanochain/logx"
	"nanochain/monitoring"
	"nanochain/pow"
)

// Genesis constants. Block 0 is an axiom: its stored hash was computed once at
// the time the network was bootstrapped and cannot be re-derived from a fresh
// timestamp, so the engine exempts it from hash and PoW re-validation.
const (
	GenesisPreviousHash = "genesis"
	GenesisData         = "genesis!"
	GenesisNonce        = 2836
	GenesisHash         = "0000f816a87f806bb0073dcf026a64fb40c946b5abee2573702828694d5b4c43"
)

// Chain owns the in-memory block sequence. It performs no internal locking:
// Genesis, AddBlock and Adopt must be invoked one at a time by a single
// caller, never overlapping. Append and replace are atomic with respect to
// Snapshot observers taken before or after the call.
type Chain struct {
	blocks []block.Block
}

func New() *Chain {
	return &Chain{}
}

// Genesis appends the fixed block 0. Calling it on a non-empty chain is a
// no-op; genesis is established exactly once at startup.
func (c *Chain) Genesis() {
	if len(c.blocks) > 0 {
		logx.Warn("CHAIN", "Genesis already established, ignoring")
		return
	}
	c.blocks = append(c.blocks, block.Block{
		ID:           0,
		Timestamp:    time.Now().Unix(),
		PreviousHash: GenesisPreviousHash,
		Data:         GenesisData,
		Nonce:        GenesisNonce,
		Hash:         GenesisHash,
	})
	monitoring.SetChainHeight(len(c.blocks))
}

// AddBlock validates candidate against the current last block and appends it.
// The chain is left unchanged on any failure.
func (c *Chain) AddBlock(candidate block.Block) error {
	if len(c.blocks) == 0 {
		return errors.NewError(errors.ErrCodeNoGenesis, errors.ErrMsgNoGenesis)
	}
	latest := c.blocks[len(c.blocks)-1]
	if err := ValidateBlock(candidate, latest); err != nil {
		return err
	}
	c.blocks = append(c.blocks, candidate)
	monitoring.SetChainHeight(len(c.blocks))
	return nil
}

// ValidateBlock runs the three block checks in order, short-circuiting at the
// first failure: linkage, proof-of-work, integrity. A hash field that fails to
// hex-decode is reported as malformed_hash before any validity verdict.
func ValidateBlock(candidate, previous block.Block) error {
	if candidate.PreviousHash != previous.Hash {
		logx.Warn("CHAIN", "Block ", candidate.ID, " has wrong previous hash")
		return errors.NewError(errors.ErrCodeBadLinkage, errors.ErrMsgBadLinkage)
	}
	raw, err := candidate.DecodedHash()
	if err != nil {
		logx.Warn("CHAIN", "Block ", candidate.ID, " has a malformed hash")
		return err
	}
	if !pow.MeetsDifficulty(raw) {
		logx.Warn("CHAIN", "Block ", candidate.ID, " does not meet the difficulty target")
		return errors.NewError(errors.ErrCodePowNotMet, errors.ErrMsgPowNotMet)
	}
	if candidate.ComputedHash() != candidate.Hash {
		logx.Warn("CHAIN", "Block ", candidate.ID, " has invalid hash")
		return errors.NewError(errors.ErrCodeHashMismatch, errors.ErrMsgHashMismatch)
	}
	return nil
}

// IsChainValid checks every adjacent pair of blocks. The genesis block at
// index 0 is accepted unconditionally. Chains with fewer than 2 blocks are
// valid.
func (c *Chain) IsChainValid(blocks []block.Block) bool {
	for i := 1; i < len(blocks); i++ {
		if err := ValidateBlock(blocks[i], blocks[i-1]); err != nil {
			return false
		}
	}
	return true
}

// ChooseChain applies the fork-choice rule to two candidate chains: the
// longer valid chain wins, the local chain wins ties. The second return
// reports whether the remote chain was selected. When neither chain is
// valid, no selection is made and the caller retains its prior state.
func (c *Chain) ChooseChain(local, remote []block.Block) ([]block.Block, bool, error) {
	localValid := c.IsChainValid(local)
	remoteValid := c.IsChainValid(remote)

	switch {
	case localValid && remoteValid:
		if len(local) >= len(remote) {
			return local, false, nil
		}
		return remote, true, nil
	case remoteValid:
		return remote, true, nil
	case localValid:
		return local, false, nil
	default:
		return nil, false, errors.NewError(errors.ErrCodeNoValidChain, errors.ErrMsgNoValidChain)
	}
}

// Adopt atomically replaces the owned chain with blocks.
func (c *Chain) Adopt(blocks []block.Block) {
	c.blocks = blocks
	monitoring.SetChainHeight(len(c.blocks))
}

// Latest returns the last block, or false when the chain is empty.
func (c *Chain) Latest() (block.Block, bool) {
	if len(c.blocks) == 0 {
		return block.Block{}, false
	}
	return c.blocks[len(c.blocks)-1], true
}

func (c *Chain) Len() int {
	return len(c.blocks)
}

// Snapshot returns a defensive copy of the owned chain for serialization and
// display.
func (c *Chain) Snapshot() []block.Block {
	out := make([]block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}
