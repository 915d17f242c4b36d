package events

import (
	"time"

	"nanochain/block"
)

// EventType is an enum-like string type for node events
type EventType string

const (
	EventBlockMined            EventType = "BlockMined"
	EventBlockReceived         EventType = "BlockReceived"
	EventChainResponseReceived EventType = "ChainResponseReceived"
	EventChainRequestReceived  EventType = "ChainRequestReceived"
)

// NodeEvent represents anything the node loop reacts to: a locally mined
// block or a payload delivered by the gossip mesh.
type NodeEvent interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BlockMined is emitted by the mining goroutine when a nonce search succeeds.
type BlockMined struct {
	block     block.Block
	timestamp time.Time
}

func NewBlockMined(b block.Block) *BlockMined {
	return &BlockMined{block: b, timestamp: time.Now()}
}

func (e *BlockMined) Type() EventType      { return EventBlockMined }
func (e *BlockMined) Timestamp() time.Time { return e.timestamp }
func (e *BlockMined) Source() string       { return "local" }
func (e *BlockMined) Block() block.Block   { return e.block }

// BlockReceived is emitted when a peer broadcasts a block.
type BlockReceived struct {
	from      string
	block     block.Block
	timestamp time.Time
}

func NewBlockReceived(from string, b block.Block) *BlockReceived {
	return &BlockReceived{from: from, block: b, timestamp: time.Now()}
}

func (e *BlockReceived) Type() EventType      { return EventBlockReceived }
func (e *BlockReceived) Timestamp() time.Time { return e.timestamp }
func (e *BlockReceived) Source() string       { return e.from }
func (e *BlockReceived) Block() block.Block   { return e.block }

// ChainResponseReceived is emitted when a peer publishes its chain.
type ChainResponseReceived struct {
	from      string
	response  block.ChainResponse
	timestamp time.Time
}

func NewChainResponseReceived(from string, resp block.ChainResponse) *ChainResponseReceived {
	return &ChainResponseReceived{from: from, response: resp, timestamp: time.Now()}
}

func (e *ChainResponseReceived) Type() EventType               { return EventChainResponseReceived }
func (e *ChainResponseReceived) Timestamp() time.Time          { return e.timestamp }
func (e *ChainResponseReceived) Source() string                { return e.from }
func (e *ChainResponseReceived) Response() block.ChainResponse { return e.response }

// ChainRequestReceived is emitted when a peer asks some node for its chain.
type ChainRequestReceived struct {
	from      string
	request   block.LocalChainRequest
	timestamp time.Time
}

func NewChainRequestReceived(from string, req block.LocalChainRequest) *ChainRequestReceived {
	return &ChainRequestReceived{from: from, request: req, timestamp: time.Now()}
}

func (e *ChainRequestReceived) Type() EventType                  { return EventChainRequestReceived }
func (e *ChainRequestReceived) Timestamp() time.Time             { return e.timestamp }
func (e *ChainRequestReceived) Source() string                   { return e.from }
func (e *ChainRequestReceived) Request() block.LocalChainRequest { return e.request }
