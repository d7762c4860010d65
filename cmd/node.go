package cmd

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtlnet/mtl/config"
	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/db"
	"github.com/mtlnet/mtl/engine"
	"github.com/mtlnet/mtl/events"
	"github.com/mtlnet/mtl/exception"
	"github.com/mtlnet/mtl/jsonrpc"
	"github.com/mtlnet/mtl/ledger"
	"github.com/mtlnet/mtl/logx"
	"github.com/mtlnet/mtl/monitoring"
	"github.com/mtlnet/mtl/ratelimit"
	"github.com/mtlnet/mtl/store"
)

var (
	genesisPath    string
	nodeConfigPath string
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the ledger node",
	Run: func(cmd *cobra.Command, args []string) {
		runNode(genesisPath, nodeConfigPath)
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.Flags().StringVarP(&genesisPath, "genesis", "g", config.DefaultGenesisPath, "Path to the genesis yml file")
	nodeCmd.Flags().StringVarP(&nodeConfigPath, "config", "c", config.DefaultNodeConfigPath, "Path to the node ini file")
}

func runNode(genesisPath string, configPath string) {
	monitoring.InitMetrics()

	genesis, err := loadGenesis(genesisPath, configPath)
	if err != nil {
		log.Fatalf("Failed to load genesis config: %v", err)
	}

	hasher, err := crypto.NewHasher(genesis.HashScheme)
	if err != nil {
		log.Fatalf("Failed to initialize hasher: %v", err)
	}

	verifier, err := crypto.NewVerifier(genesis.SignatureScheme, genesis.WasmVerifierPath)
	if err != nil {
		log.Fatalf("Failed to initialize verifier: %v", err)
	}

	chain, err := initializeChainStore(configPath)
	if err != nil {
		log.Fatalf("Failed to initialize chain store: %v", err)
	}

	ld := ledger.New(hasher, genesis.RequireNonce)
	bus := events.NewEventBus()
	eng := engine.New(ld, chain, hasher, verifier, bus)

	if err := eng.Replay(); err != nil {
		log.Fatalf("Failed to replay chain: %v", err)
	}

	if err := startServices(configPath, eng); err != nil {
		log.Fatalf("Failed to start services: %v", err)
	}

	// serve until killed
	select {}
}

// loadGenesis loads the chain identity and verifies its minisign
// signature when the node config pins a trusted key.
func loadGenesis(genesisPath string, configPath string) (*config.GenesisConfig, error) {
	verifyCfg, err := config.LoadGenesisVerifyConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load genesis verify config: %w", err)
	}
	if verifyCfg.MinisignPubKey != "" {
		if err := config.VerifyGenesisSignature(genesisPath, verifyCfg.MinisignPubKey); err != nil {
			return nil, fmt.Errorf("verify genesis signature: %w", err)
		}
	}

	genesis, err := config.LoadGenesisConfig(genesisPath)
	if err != nil {
		return nil, fmt.Errorf("load genesis config: %w", err)
	}
	return genesis, nil
}

// initializeChainStore opens the configured database backend and the
// chain store on top of it.
func initializeChainStore(configPath string) (*store.ChainStore, error) {
	dbCfg, err := config.LoadDBConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load db config: %w", err)
	}

	provider, err := db.NewProvider(&db.Config{
		Backend:   db.Backend(dbCfg.Backend),
		Directory: dbCfg.Directory,
		DSN:       dbCfg.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", dbCfg.Backend, err)
	}
	logx.Info("NODE", fmt.Sprintf("Using %s chain store", dbCfg.Backend))

	chain, err := store.NewChainStore(provider)
	if err != nil {
		return nil, fmt.Errorf("open chain store: %w", err)
	}
	return chain, nil
}

// startServices starts the metrics endpoint and the JSON-RPC server.
func startServices(configPath string, eng *engine.Engine) error {
	nodeCfg, err := config.LoadNodeConfig(configPath)
	if err != nil {
		return fmt.Errorf("load node config: %w", err)
	}
	rpcCfg, err := config.LoadRPCConfig(configPath)
	if err != nil {
		return fmt.Errorf("load rpc config: %w", err)
	}

	metricsMux := http.NewServeMux()
	monitoring.RegisterMetrics(metricsMux)
	exception.SafeGo("metrics-server", func() {
		logx.Info("NODE", fmt.Sprintf("Metrics listening on %s", nodeCfg.MetricsAddr))
		if err := http.ListenAndServe(nodeCfg.MetricsAddr, metricsMux); err != nil {
			logx.Error("NODE", "Metrics server stopped:", err)
		}
	})

	proposeLimiter := ratelimit.NewRateLimiter(&ratelimit.RateLimiterConfig{
		MaxRequests:     rpcCfg.ProposeMaxRequests,
		WindowSize:      time.Duration(rpcCfg.ProposeWindowMs) * time.Millisecond,
		CleanupInterval: 5 * time.Minute,
	})

	rpcServer := jsonrpc.NewServer(nodeCfg.ListenAddr, eng, proposeLimiter)
	rpcServer.SetAllowedOrigins(rpcCfg.AllowedOrigins)
	rpcServer.Start()
	return nil
}
