package block

// Boundary payloads exchanged over the gossip mesh. Serialized with jsonx;
// field names are part of the wire contract.

// ChainResponse carries a full chain addressed to a single receiver.
type ChainResponse struct {
	Blocks   []Block `json:"blocks"`
	Receiver string  `json:"receiver"`
}

// LocalChainRequest asks the peer identified by FromPeerID to publish its
// local chain.
type LocalChainRequest struct {
	FromPeerID string `json:"from_peer_id"`
}
