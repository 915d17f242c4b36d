package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nanochain/block"
	"nanochain/chain"
	"nanochain/config"
	"nanochain/errors"
	"nanochain/events"
	"nanochain/exception"
	"nanochain/jsonx"
	"nanochain/logx"
	"nanochain/monitoring"
	"nanochain/p2p"
	"nanochain/pow"
)

var (
	nodeConfigPath string
	powConfigPath  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the nanochain node",
	Run: func(cmd *cobra.Command, args []string) {
		runNode(nodeConfigPath, powConfigPath)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&nodeConfigPath, "config", "c", config.DefaultNodeConfigPath, "Path to the node YAML config")
	runCmd.Flags().StringVar(&powConfigPath, "pow-config", config.DefaultPowConfigPath, "Path to the mining INI config")
}

// node bundles everything the run loop touches. The chain engine is mutated
// only from the event loop goroutine, which serializes every Genesis /
// AddBlock / Adopt call.
type node struct {
	engine  *chain.Chain
	bus     *events.EventBus
	network *p2p.Service
	mineCfg pow.MineConfig

	ctx    context.Context
	mining atomic.Bool
}

func runNode(nodeConfigPath, powConfigPath string) {
	nodeCfg, err := config.LoadNodeConfig(nodeConfigPath)
	if err != nil {
		logx.Error("NODE", "Failed to load node config: ", err)
		os.Exit(1)
	}
	powCfg, err := config.LoadPowConfig(powConfigPath)
	if err != nil {
		logx.Error("NODE", "Failed to load pow config: ", err)
		os.Exit(1)
	}

	monitoring.MarkNodeUp()
	exception.SafeGo("metrics-server", func() {
		monitoring.RunMetricsServer(nodeCfg.MetricsAddr)
	})

	bus := events.NewEventBus()

	network, err := p2p.NewService(nodeCfg)
	if err != nil {
		logx.Error("NODE", "Failed to create p2p service: ", err)
		os.Exit(1)
	}
	network.SetMessageHandlers(p2p.NewChainTopicHandler(bus), p2p.NewBlockTopicHandler(bus))
	if err := network.Start(); err != nil {
		logx.Error("NODE", "Failed to start p2p service: ", err)
		os.Exit(1)
	}
	defer network.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := &node{
		engine:  chain.New(),
		bus:     bus,
		network: network,
		mineCfg: pow.MineConfig{MaxAttempts: powCfg.MaxAttempts, ProgressEvery: powCfg.ProgressEvery},
		ctx:     ctx,
	}

	n.eventLoop()
}

func (n *node) eventLoop() {
	subID, eventCh := n.bus.Subscribe()
	defer n.bus.Unsubscribe(subID)

	lines := make(chan string)
	exception.SafeGo("stdin-repl", func() {
		readLines(n.ctx, os.Stdin, lines)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Give discovery a moment before asking anyone for their chain.
	initCh := time.After(config.InitSettleDelay)

	fmt.Println("Possible commands:")
	fmt.Println("  ls peers")
	fmt.Println("  ls chain")
	fmt.Println("  create block <data>")

	for {
		select {
		case <-initCh:
			n.handleInit()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			n.handleCommand(line)
		case ev := <-eventCh:
			n.handleEvent(ev)
		case <-sigCh:
			logx.Info("NODE", "Shutting down")
			return
		}
	}
}

// readLines feeds stdin lines to the event loop. The send races ctx so the
// goroutine exits promptly once the loop has stopped draining, instead of
// blocking on an abandoned channel.
func readLines(ctx context.Context, r io.Reader, lines chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	close(lines)
}

// handleInit establishes genesis and asks the most recently seen peer for its
// chain, so a late joiner catches up immediately.
func (n *node) handleInit() {
	n.engine.Genesis()

	peers := n.network.Peers()
	logx.Info("NODE", "Connected nodes: ", len(peers))
	if len(peers) == 0 {
		return
	}

	req := block.LocalChainRequest{FromPeerID: peers[len(peers)-1].String()}
	if err := n.network.PublishLocalChainRequest(req); err != nil {
		logx.Error("NODE", "Failed to publish chain request: ", err)
	}
}

func (n *node) handleCommand(line string) {
	switch {
	case line == "ls peers":
		for _, p := range n.network.Peers() {
			fmt.Println(p.String())
		}
	case strings.HasPrefix(line, "ls chain"):
		pretty, err := jsonx.MarshalIndent(n.engine.Snapshot(), "", "  ")
		if err != nil {
			logx.Error("NODE", "Failed to render chain: ", err)
			return
		}
		fmt.Println("Local Blockchain:")
		fmt.Println(string(pretty))
	case strings.HasPrefix(line, "create block"):
		data := strings.TrimSpace(strings.TrimPrefix(line, "create block"))
		n.createBlock(data)
	case line == "":
	default:
		fmt.Println("Unknown command")
	}
}

// createBlock mines on a dedicated goroutine so the event loop and message
// handling stay responsive; the result comes back through the event bus.
func (n *node) createBlock(data string) {
	latest, ok := n.engine.Latest()
	if !ok {
		logx.Warn("NODE", "Cannot create a block before genesis")
		return
	}
	if !n.mining.CompareAndSwap(false, true) {
		logx.Warn("NODE", "A nonce search is already running")
		return
	}

	id, previousHash := latest.ID+1, latest.Hash
	exception.SafeGo("miner", func() {
		defer n.mining.Store(false)

		start := time.Now()
		mined, err := block.New(n.ctx, id, previousHash, data, n.mineCfg)
		monitoring.ObserveMiningDuration(time.Since(start))
		if err != nil {
			logx.Error("NODE", "Mining failed: ", err)
			return
		}
		n.bus.Publish(events.NewBlockMined(*mined))
	})
}

func (n *node) handleEvent(ev events.NodeEvent) {
	switch e := ev.(type) {
	case *events.BlockMined:
		n.handleBlockMined(e.Block())
	case *events.BlockReceived:
		n.handleBlockReceived(e.Source(), e.Block())
	case *events.ChainRequestReceived:
		n.handleChainRequest(e.Source(), e.Request())
	case *events.ChainResponseReceived:
		n.handleChainResponse(e.Source(), e.Response())
	}
}

func (n *node) handleBlockMined(b block.Block) {
	if err := n.engine.AddBlock(b); err != nil {
		logx.Error("NODE", "Could not append mined block: ", err)
		monitoring.IncreaseRejectedBlockCount(rejectedReason(err))
		return
	}
	monitoring.IncreaseMinedBlockCount()
	logx.Info("NODE", "Broadcasting new block ", b.Hash)
	if err := n.network.PublishBlock(b); err != nil {
		logx.Error("NODE", "Failed to broadcast block: ", err)
	}
}

func (n *node) handleBlockReceived(from string, b block.Block) {
	if err := n.engine.AddBlock(b); err != nil {
		logx.Error("NODE", "Error adding block from ", from, ": ", err)
		monitoring.IncreaseRejectedBlockCount(rejectedReason(err))
	}
}

func (n *node) handleChainRequest(from string, req block.LocalChainRequest) {
	if req.FromPeerID != n.network.HostID() {
		return
	}
	logx.Info("NODE", "Sending local chain to ", from)
	resp := block.ChainResponse{
		Blocks:   n.engine.Snapshot(),
		Receiver: from,
	}
	if err := n.network.PublishChainResponse(resp); err != nil {
		logx.Error("NODE", "Failed to publish chain response: ", err)
	}
}

func (n *node) handleChainResponse(from string, resp block.ChainResponse) {
	if resp.Receiver != n.network.HostID() {
		return
	}
	logx.Info("NODE", "Received chain of length ", len(resp.Blocks), " from ", from)

	chosen, remoteWon, err := n.engine.ChooseChain(n.engine.Snapshot(), resp.Blocks)
	if err != nil {
		logx.Error("NODE", "Could not pick best chain: ", err)
		return
	}
	n.engine.Adopt(chosen)

	if remoteWon {
		monitoring.IncreaseChainSwapCount()
		logx.Info("NODE", "Adopted remote chain from ", from, ", height ", n.engine.Len())
	}
}

func rejectedReason(err error) monitoring.BlockRejectedReason {
	switch errors.CodeOf(err) {
	case errors.ErrCodeBadLinkage:
		return monitoring.BlockBadLinkage
	case errors.ErrCodePowNotMet:
		return monitoring.BlockPowNotMet
	case errors.ErrCodeHashMismatch:
		return monitoring.BlockHashMismatch
	case errors.ErrCodeMalformedHash:
		return monitoring.BlockMalformedHash
	case errors.ErrCodeNoGenesis:
		return monitoring.BlockNoGenesis
	default:
		return monitoring.BlockRejectedOther
	}
}
