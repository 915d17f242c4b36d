package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanochain/block"
	"nanochain/events"
	"nanochain/jsonx"
)

func receiveEvent(t *testing.T, ch chan events.NodeEvent) events.NodeEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for event")
		return nil
	}
}

func TestChainTopicHandlerChainResponse(t *testing.T) {
	bus := events.NewEventBus()
	subID, ch := bus.Subscribe()
	defer bus.Unsubscribe(subID)

	handler := NewChainTopicHandler(bus)
	resp := block.ChainResponse{
		Blocks:   []block.Block{{ID: 0, Hash: "00aa"}},
		Receiver: "receiver-peer",
	}
	data, err := jsonx.Marshal(resp)
	require.NoError(t, err)

	require.NoError(t, handler.HandleMessage(context.Background(), peer.ID("sender"), data))

	ev := receiveEvent(t, ch)
	require.Equal(t, events.EventChainResponseReceived, ev.Type())
	assert.Equal(t, resp, ev.(*events.ChainResponseReceived).Response())
}

func TestChainTopicHandlerLocalChainRequest(t *testing.T) {
	bus := events.NewEventBus()
	subID, ch := bus.Subscribe()
	defer bus.Unsubscribe(subID)

	handler := NewChainTopicHandler(bus)
	req := block.LocalChainRequest{FromPeerID: "some-peer"}
	data, err := jsonx.Marshal(req)
	require.NoError(t, err)

	require.NoError(t, handler.HandleMessage(context.Background(), peer.ID("sender"), data))

	ev := receiveEvent(t, ch)
	require.Equal(t, events.EventChainRequestReceived, ev.Type())
	assert.Equal(t, req, ev.(*events.ChainRequestReceived).Request())
}

func TestChainTopicHandlerRejectsGarbage(t *testing.T) {
	bus := events.NewEventBus()
	handler := NewChainTopicHandler(bus)

	assert.Error(t, handler.HandleMessage(context.Background(), peer.ID("sender"), []byte("not json")))
	assert.Error(t, handler.HandleMessage(context.Background(), peer.ID("sender"), []byte(`{"unrelated":true}`)))
}

func TestBlockTopicHandler(t *testing.T) {
	bus := events.NewEventBus()
	subID, ch := bus.Subscribe()
	defer bus.Unsubscribe(subID)

	handler := NewBlockTopicHandler(bus)
	b := block.Block{ID: 5, PreviousHash: "00aa", Data: "x", Nonce: 7, Hash: "00bb"}
	data, err := jsonx.Marshal(b)
	require.NoError(t, err)

	require.NoError(t, handler.HandleMessage(context.Background(), peer.ID("sender"), data))

	ev := receiveEvent(t, ch)
	require.Equal(t, events.EventBlockReceived, ev.Type())
	assert.Equal(t, b, ev.(*events.BlockReceived).Block())
	assert.Equal(t, peer.ID("sender").String(), ev.Source())

	assert.Error(t, handler.HandleMessage(context.Background(), peer.ID("sender"), []byte(`{"id":1}`)))
}
