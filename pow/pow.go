package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"nanochain/errors"
	"nanochain/logx"
)

// canonicalJSON quotes the digest payload strings. Unlike the wire-level
// jsonx config it does not HTML-escape, so '<', '>' and '&' stay literal in
// the hashed bytes.
var canonicalJSON = jsoniter.Config{SortMapKeys: true, ValidateJsonRawMessage: true}.Froze()

// DifficultyPrefix is the required leading substring of a digest's binary
// rendering. Two characters, not two bits: see HashToBinary.
const DifficultyPrefix = "00"

const (
	defaultProgressEvery = 100000
	cancelCheckMask      = 0x3ff
)

// CalculateHash computes the SHA-256 digest of the canonical textual form of a
// block's contents. Key order and formatting are the wire-level contract shared
// by every conforming node; changing either forks the network.
func CalculateHash(id uint64, timestamp int64, previousHash, data string, nonce uint64) [32]byte {
	return sha256.Sum256(CanonicalPayload(id, timestamp, previousHash, data, nonce))
}

// CanonicalPayload renders the hashed fields as a compact JSON object with the
// fixed key order id, previous_hash, data, timestamp, nonce.
func CanonicalPayload(id uint64, timestamp int64, previousHash, data string, nonce uint64) []byte {
	prev, _ := canonicalJSON.Marshal(previousHash)
	payload, _ := canonicalJSON.Marshal(data)
	return []byte(fmt.Sprintf(`{"id":%d,"previous_hash":%s,"data":%s,"timestamp":%d,"nonce":%d}`,
		id, prev, payload, timestamp, nonce))
}

// HashToBinary concatenates the binary-digit rendering of every byte of hash,
// in byte order and without zero-padding (0x05 -> "101", 0x00 -> "0"). The
// result has no fixed width per byte; the difficulty prefix is matched against
// this string, not against the leading bits of the digest.
func HashToBinary(hash []byte) string {
	var sb strings.Builder
	for _, c := range hash {
		sb.WriteString(strconv.FormatUint(uint64(c), 2))
	}
	return sb.String()
}

// MeetsDifficulty reports whether the digest satisfies the difficulty target.
func MeetsDifficulty(hash []byte) bool {
	return strings.HasPrefix(HashToBinary(hash), DifficultyPrefix)
}

// MineConfig bounds a nonce search. The zero value searches forever and logs
// progress at the default interval.
type MineConfig struct {
	MaxAttempts   uint64 // 0 = unbounded
	ProgressEvery uint64 // 0 = defaultProgressEvery
}

// Mine searches nonces starting at 0, incrementing by 1, and returns the first
// nonce whose digest meets the difficulty, together with the hex-encoded
// digest. The search is deterministic for fixed inputs. Cancelling ctx stops
// the search with a mining_cancelled error; exceeding MaxAttempts stops it
// with mining_exhausted.
func Mine(ctx context.Context, id uint64, timestamp int64, previousHash, data string, cfg MineConfig) (uint64, string, error) {
	progressEvery := cfg.ProgressEvery
	if progressEvery == 0 {
		progressEvery = defaultProgressEvery
	}

	logx.Info("POW", "Mining block ", id)
	for nonce := uint64(0); ; nonce++ {
		if cfg.MaxAttempts > 0 && nonce >= cfg.MaxAttempts {
			return 0, "", errors.NewError(errors.ErrCodeMiningExhausted, errors.ErrMsgMiningExhausted)
		}
		if nonce&cancelCheckMask == 0 {
			select {
			case <-ctx.Done():
				return 0, "", errors.NewError(errors.ErrCodeMiningCancelled, errors.ErrMsgMiningCancelled)
			default:
			}
		}
		if nonce%progressEvery == 0 && nonce > 0 {
			logx.Info("POW", "Mining. Nonce: ", nonce)
		}

		hash := CalculateHash(id, timestamp, previousHash, data, nonce)
		if MeetsDifficulty(hash[:]) {
			hexHash := hex.EncodeToString(hash[:])
			logx.Info("POW", "Mined block. Nonce: ", nonce, ", hash: ", hexHash)
			return nonce, hexHash, nil
		}
	}
}
