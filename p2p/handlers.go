package p2p

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"

	"nanochain/block"
	"nanochain/events"
	"nanochain/jsonx"
	"nanochain/logx"
	"nanochain/monitoring"
)

// ChainTopicHandler decodes payloads on the chains topic. The topic carries
// both ChainResponse and LocalChainRequest messages, so decoding is by trial
// in that order, keyed on the required field of each shape.
type ChainTopicHandler struct {
	bus *events.EventBus
}

func NewChainTopicHandler(bus *events.EventBus) *ChainTopicHandler {
	return &ChainTopicHandler{bus: bus}
}

func (h *ChainTopicHandler) HandleMessage(_ context.Context, from peer.ID, data []byte) error {
	var resp block.ChainResponse
	if err := jsonx.Unmarshal(data, &resp); err == nil && resp.Receiver != "" {
		h.bus.Publish(events.NewChainResponseReceived(from.String(), resp))
		return nil
	}

	var req block.LocalChainRequest
	if err := jsonx.Unmarshal(data, &req); err == nil && req.FromPeerID != "" {
		h.bus.Publish(events.NewChainRequestReceived(from.String(), req))
		return nil
	}

	return fmt.Errorf("unrecognized payload on %s topic from %s", ChainTopic, from)
}

// BlockTopicHandler decodes single blocks broadcast on the blocks topic.
type BlockTopicHandler struct {
	bus *events.EventBus
}

func NewBlockTopicHandler(bus *events.EventBus) *BlockTopicHandler {
	return &BlockTopicHandler{bus: bus}
}

func (h *BlockTopicHandler) HandleMessage(_ context.Context, from peer.ID, data []byte) error {
	var b block.Block
	if err := jsonx.Unmarshal(data, &b); err != nil || b.Hash == "" {
		return fmt.Errorf("unrecognized payload on %s topic from %s", BlockTopic, from)
	}

	logx.Info("NETWORK", "Received new block from ", from)
	monitoring.IncreaseReceivedBlockCount()
	h.bus.Publish(events.NewBlockReceived(from.String(), b))
	return nil
}
