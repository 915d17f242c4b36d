package p2p

const (
	// PubSub topics. Shared with every peer running compatible software.
	ChainTopic = "chains"
	BlockTopic = "blocks"

	// AdvertiseName is the mDNS service tag used for local discovery.
	AdvertiseName = "nanochain"
)
