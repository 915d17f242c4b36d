package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanochain/block"
	"nanochain/errors"
	"nanochain/pow"
)

func mineNext(t *testing.T, prev block.Block, data string) block.Block {
	t.Helper()
	b, err := block.New(context.Background(), prev.ID+1, prev.Hash, data, pow.MineConfig{})
	require.NoError(t, err)
	return *b
}

func newTestChain(t *testing.T, extra int) *Chain {
	t.Helper()
	c := New()
	c.Genesis()
	for i := 0; i < extra; i++ {
		latest, ok := c.Latest()
		require.True(t, ok)
		require.NoError(t, c.AddBlock(mineNext(t, latest, "payload")))
	}
	return c
}

func TestGenesis(t *testing.T) {
	c := New()
	c.Genesis()
	require.Equal(t, 1, c.Len())

	g, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(0), g.ID)
	assert.Equal(t, GenesisPreviousHash, g.PreviousHash)
	assert.Equal(t, GenesisHash, g.Hash)

	// Genesis is established exactly once.
	c.Genesis()
	assert.Equal(t, 1, c.Len())
}

func TestSequentialAddBlockYieldsValidChain(t *testing.T) {
	c := newTestChain(t, 3)
	assert.Equal(t, 4, c.Len())
	assert.True(t, c.IsChainValid(c.Snapshot()))
}

func TestAddBlockOnEmptyChain(t *testing.T) {
	c := New()
	err := c.AddBlock(block.Block{ID: 1})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoGenesis, errors.CodeOf(err))
	assert.Equal(t, 0, c.Len())
}

func TestRejectionLeavesChainUnchanged(t *testing.T) {
	c := newTestChain(t, 1)
	before := c.Snapshot()

	bad := mineNext(t, before[len(before)-1], "ok")
	bad.PreviousHash = "not the previous hash"
	require.Error(t, c.AddBlock(bad))
	assert.Equal(t, before, c.Snapshot())
}

func TestValidateBlockLinkage(t *testing.T) {
	c := newTestChain(t, 1)
	latest, _ := c.Latest()

	candidate := mineNext(t, latest, "data")
	candidate.PreviousHash = "wrong"
	err := ValidateBlock(candidate, latest)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBadLinkage, errors.CodeOf(err))
	assert.True(t, errors.IsValidationFailure(err))
}

func TestValidateBlockPowNotMet(t *testing.T) {
	c := newTestChain(t, 0)
	latest, _ := c.Latest()

	// A well-formed block whose honest digest misses the difficulty target.
	candidate := block.Block{
		ID:           latest.ID + 1,
		Timestamp:    1650000000,
		PreviousHash: latest.Hash,
		Data:         "unmined",
		Nonce:        0,
	}
	candidate.Hash = candidate.ComputedHash()
	if raw, err := candidate.DecodedHash(); err == nil && pow.MeetsDifficulty(raw) {
		t.Skip("nonce 0 accidentally meets difficulty")
	}

	err := ValidateBlock(candidate, latest)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePowNotMet, errors.CodeOf(err))
}

func TestValidateBlockHashMismatch(t *testing.T) {
	c := newTestChain(t, 0)
	latest, _ := c.Latest()

	// Linkage and PoW both pass; only the recomputed digest disagrees.
	candidate := mineNext(t, latest, "original data")
	candidate.Data = "tampered data"
	err := ValidateBlock(candidate, latest)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeHashMismatch, errors.CodeOf(err))
}

func TestValidateBlockMalformedHash(t *testing.T) {
	c := newTestChain(t, 0)
	latest, _ := c.Latest()

	candidate := mineNext(t, latest, "data")
	candidate.Hash = "zz" + candidate.Hash[2:]
	err := ValidateBlock(candidate, latest)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMalformedHash, errors.CodeOf(err))
	// Malformed input is not a validation verdict.
	assert.False(t, errors.IsValidationFailure(err))
}

func TestTamperingInvalidatesChain(t *testing.T) {
	c := newTestChain(t, 3)
	require.True(t, c.IsChainValid(c.Snapshot()))

	for name, mutate := range map[string]func(*block.Block){
		"data":          func(b *block.Block) { b.Data = "changed" },
		"previous_hash": func(b *block.Block) { b.PreviousHash = "changed" },
		"nonce":         func(b *block.Block) { b.Nonce++ },
	} {
		t.Run(name, func(t *testing.T) {
			tampered := c.Snapshot()
			mutate(&tampered[2])
			assert.False(t, c.IsChainValid(tampered))
		})
	}
}

func TestShortChainsAreValid(t *testing.T) {
	c := New()
	assert.True(t, c.IsChainValid(nil))
	assert.True(t, c.IsChainValid([]block.Block{{ID: 0, Hash: "anything"}}))
}

func TestChooseChain(t *testing.T) {
	c := newTestChain(t, 2)
	local := c.Snapshot() // length 3

	remote := c.Snapshot()
	for i := 0; i < 2; i++ {
		remote = append(remote, mineNext(t, remote[len(remote)-1], "remote"))
	}
	// length 5

	t.Run("longer remote wins", func(t *testing.T) {
		chosen, remoteWon, err := c.ChooseChain(local, remote)
		require.NoError(t, err)
		assert.Equal(t, remote, chosen)
		assert.True(t, remoteWon)
	})

	t.Run("local wins ties", func(t *testing.T) {
		other := c.Snapshot()
		other = append(other, mineNext(t, other[len(other)-1], "fork"))
		mine := c.Snapshot()
		mine = append(mine, mineNext(t, mine[len(mine)-1], "ours"))

		chosen, remoteWon, err := c.ChooseChain(mine, other)
		require.NoError(t, err)
		assert.Equal(t, mine, chosen)
		assert.False(t, remoteWon)
	})

	t.Run("invalid local loses", func(t *testing.T) {
		broken := c.Snapshot()
		broken[1].Data = "tampered"
		chosen, remoteWon, err := c.ChooseChain(broken, remote)
		require.NoError(t, err)
		assert.Equal(t, remote, chosen)
		assert.True(t, remoteWon)
	})

	t.Run("invalid local loses at equal length", func(t *testing.T) {
		broken := c.Snapshot()
		broken[2].Data = "tampered"
		valid := c.Snapshot()

		chosen, remoteWon, err := c.ChooseChain(broken, valid)
		require.NoError(t, err)
		assert.Equal(t, valid, chosen)
		assert.True(t, remoteWon)
	})

	t.Run("invalid remote loses", func(t *testing.T) {
		broken := append(c.Snapshot(), remote[3], remote[4])
		broken[1].Nonce++
		chosen, remoteWon, err := c.ChooseChain(local, broken)
		require.NoError(t, err)
		assert.Equal(t, local, chosen)
		assert.False(t, remoteWon)
	})

	t.Run("both invalid fails", func(t *testing.T) {
		brokenLocal := c.Snapshot()
		brokenLocal[1].Data = "x"
		brokenRemote := c.Snapshot()
		brokenRemote[2].Nonce++

		chosen, remoteWon, err := c.ChooseChain(brokenLocal, brokenRemote)
		require.Error(t, err)
		assert.Nil(t, chosen)
		assert.False(t, remoteWon)
		assert.Equal(t, errors.ErrCodeNoValidChain, errors.CodeOf(err))
	})
}

func TestAdoptReplacesChainAtomically(t *testing.T) {
	c := newTestChain(t, 1)
	replacement := c.Snapshot()
	replacement = append(replacement, mineNext(t, replacement[len(replacement)-1], "new"))

	c.Adopt(replacement)
	assert.Equal(t, replacement, c.Snapshot())
	assert.Equal(t, 3, c.Len())
}
