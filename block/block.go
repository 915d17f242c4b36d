package block

import (
	"context"
	"encoding/hex"
	"time"

	"nanochain/errors"
	"nanochain/pow"
)

// Block is one chain entry. The JSON field names and the hash field order are
// the interoperability contract with every peer running compatible software.
type Block struct {
	ID           uint64 `json:"id"`
	Timestamp    int64  `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Data         string `json:"data"`
	Nonce        uint64 `json:"nonce"`
	Hash         string `json:"hash"`
}

// New mines a block on top of the predecessor identified by previousHash,
// capturing the timestamp at call time. Mining blocks until a satisfying
// nonce is found, ctx is cancelled, or the attempt budget in cfg runs out.
func New(ctx context.Context, id uint64, previousHash, data string, cfg pow.MineConfig) (*Block, error) {
	timestamp := time.Now().Unix()
	nonce, hash, err := pow.Mine(ctx, id, timestamp, previousHash, data, cfg)
	if err != nil {
		return nil, err
	}
	return &Block{
		ID:           id,
		Timestamp:    timestamp,
		PreviousHash: previousHash,
		Data:         data,
		Nonce:        nonce,
		Hash:         hash,
	}, nil
}

// DecodedHash returns the raw digest bytes of the stored hex hash. A hash
// that is not valid hex is a malformed_hash error, reported before any
// validity verdict is produced.
func (b *Block) DecodedHash() ([]byte, error) {
	raw, err := hex.DecodeString(b.Hash)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeMalformedHash, errors.ErrMsgMalformedHash)
	}
	return raw, nil
}

// ComputedHash re-derives the hex digest from the block's own fields.
func (b *Block) ComputedHash() string {
	hash := pow.CalculateHash(b.ID, b.Timestamp, b.PreviousHash, b.Data, b.Nonce)
	return hex.EncodeToString(hash[:])
}
