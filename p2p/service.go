package p2p

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/multiformats/go-multiaddr"

	"nanochain/block"
	"nanochain/config"
	"nanochain/exception"
	"nanochain/jsonx"
	"nanochain/logx"
	"nanochain/monitoring"
)

// MessageHandler defines the interface for handling messages from one topic
type MessageHandler interface {
	HandleMessage(ctx context.Context, from peer.ID, data []byte) error
}

// Service owns the libp2p host, the two gossipsub topics, and local mDNS
// discovery. Decoded payloads are passed to the configured MessageHandlers;
// the service itself never touches the chain engine.
type Service struct {
	host   host.Host
	pubsub *pubsub.PubSub
	ctx    context.Context
	cancel context.CancelFunc

	// Message handlers
	chainHandler MessageHandler
	blockHandler MessageHandler

	// Subscriptions
	chainSub *pubsub.Subscription
	blockSub *pubsub.Subscription

	// Topics (for publishing)
	chainTopic *pubsub.Topic
	blockTopic *pubsub.Topic

	mdnsService mdns.Service

	bootstrapPeers []multiaddr.Multiaddr
}

// NewService creates the libp2p host with a freshly generated ed25519
// identity and joins the gossip mesh described by cfg.
func NewService(cfg *config.NodeConfig) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(cfg.ListenAddr),
		libp2p.DefaultSecurity,
		libp2p.DefaultTransports,
		libp2p.DefaultMuxers,
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}

	service := &Service{
		host:   h,
		ctx:    ctx,
		cancel: cancel,
	}

	for _, addrStr := range cfg.BootstrapPeers {
		addr, err := multiaddr.NewMultiaddr(addrStr)
		if err != nil {
			logx.Warn("NETWORK", "Invalid bootstrap address ", addrStr, ": ", err)
			continue
		}
		service.bootstrapPeers = append(service.bootstrapPeers, addr)
	}

	service.pubsub, err = pubsub.NewGossipSub(ctx, h)
	if err != nil {
		service.Close()
		return nil, fmt.Errorf("failed to setup gossipsub: %w", err)
	}

	if cfg.EnableMdns {
		service.mdnsService = mdns.NewMdnsService(h, AdvertiseName, &mdnsNotifee{service: service})
	}

	return service, nil
}

// SetMessageHandlers sets the handlers for the chains and blocks topics.
// Must be called before Start.
func (s *Service) SetMessageHandlers(chainHandler, blockHandler MessageHandler) {
	s.chainHandler = chainHandler
	s.blockHandler = blockHandler
}

// Start connects to bootstrap peers, subscribes to both topics and begins
// local discovery.
func (s *Service) Start() error {
	logx.Info("NETWORK", "Listening on: ", s.host.Addrs())
	logx.Info("NETWORK", "Peer ID: ", s.host.ID().String())

	s.connectToBootstrapPeers()

	if err := s.subscribeToTopics(); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	if s.mdnsService != nil {
		if err := s.mdnsService.Start(); err != nil {
			return fmt.Errorf("failed to start mdns discovery: %w", err)
		}
	}

	exception.SafeGo("peer-count-metric", s.trackPeerCount)

	return nil
}

func (s *Service) connectToBootstrapPeers() {
	for _, addr := range s.bootstrapPeers {
		addrInfo, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			logx.Warn("NETWORK", "Invalid bootstrap peer address ", addr, ": ", err)
			continue
		}
		exception.SafeGo("bootstrap-connect", func() {
			ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
			defer cancel()
			if err := s.host.Connect(ctx, *addrInfo); err != nil {
				logx.Warn("NETWORK", "Failed to connect to bootstrap peer ", addrInfo.ID, ": ", err)
			} else {
				logx.Info("NETWORK", "Connected to bootstrap peer: ", addrInfo.ID)
			}
		})
	}
}

func (s *Service) subscribeToTopics() error {
	var err error

	s.chainTopic, err = s.pubsub.Join(ChainTopic)
	if err != nil {
		return fmt.Errorf("failed to join chain topic: %w", err)
	}
	s.chainSub, err = s.chainTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to chain topic: %w", err)
	}
	exception.SafeGo("chain-topic-loop", func() { s.handlePubSubMessages(s.chainSub, s.chainHandler) })

	s.blockTopic, err = s.pubsub.Join(BlockTopic)
	if err != nil {
		return fmt.Errorf("failed to join block topic: %w", err)
	}
	s.blockSub, err = s.blockTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to block topic: %w", err)
	}
	exception.SafeGo("block-topic-loop", func() { s.handlePubSubMessages(s.blockSub, s.blockHandler) })

	return nil
}

func (s *Service) handlePubSubMessages(sub *pubsub.Subscription, handler MessageHandler) {
	for {
		msg, err := sub.Next(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return // Context cancelled
			}
			logx.Error("NETWORK", "Error reading from subscription: ", err)
			continue
		}

		// Skip messages from ourselves
		if msg.ReceivedFrom == s.host.ID() {
			continue
		}

		if handler != nil {
			if err := handler.HandleMessage(s.ctx, msg.ReceivedFrom, msg.Data); err != nil {
				logx.Error("NETWORK", "Error handling message from ", msg.ReceivedFrom, ": ", err)
			}
		}
	}
}

func (s *Service) trackPeerCount() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			monitoring.SetPeerCount(len(s.host.Network().Peers()))
		}
	}
}

// PublishBlock broadcasts a freshly appended block on the blocks topic.
func (s *Service) PublishBlock(b block.Block) error {
	data, err := jsonx.Marshal(b)
	if err != nil {
		return err
	}
	return s.blockTopic.Publish(s.ctx, data)
}

// PublishChainResponse publishes the local chain, addressed to a receiver.
func (s *Service) PublishChainResponse(resp block.ChainResponse) error {
	data, err := jsonx.Marshal(resp)
	if err != nil {
		return err
	}
	return s.chainTopic.Publish(s.ctx, data)
}

// PublishLocalChainRequest asks the peer named in req to publish its chain.
func (s *Service) PublishLocalChainRequest(req block.LocalChainRequest) error {
	data, err := jsonx.Marshal(req)
	if err != nil {
		return err
	}
	return s.chainTopic.Publish(s.ctx, data)
}

// Peers returns the peers this node is currently connected to.
func (s *Service) Peers() []peer.ID {
	return s.host.Network().Peers()
}

// HostID returns this node's peer identifier.
func (s *Service) HostID() string {
	return s.host.ID().String()
}

// Close shuts down discovery, subscriptions, topics and the host.
func (s *Service) Close() error {
	logx.Info("NETWORK", "Shutting down p2p service")

	s.cancel()

	if s.mdnsService != nil {
		s.mdnsService.Close()
	}
	if s.chainSub != nil {
		s.chainSub.Cancel()
	}
	if s.blockSub != nil {
		s.blockSub.Cancel()
	}
	if s.chainTopic != nil {
		s.chainTopic.Close()
	}
	if s.blockTopic != nil {
		s.blockTopic.Close()
	}
	if s.host != nil {
		return s.host.Close()
	}
	return nil
}

// mdnsNotifee connects to peers found on the local network.
type mdnsNotifee struct {
	service *Service
}

func (n *mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.service.host.ID() {
		return
	}
	if err := n.service.host.Connect(n.service.ctx, info); err != nil {
		logx.Warn("DISCOVERY", "Failed to connect to discovered peer ", info.ID, ": ", err)
		return
	}
	logx.Info("DISCOVERY", "Connected to discovered peer: ", info.ID)
	monitoring.SetPeerCount(len(n.service.host.Network().Peers()))
}
