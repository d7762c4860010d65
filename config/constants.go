package config

const (
	DefaultGenesisPath    = "config/genesis.yml"
	DefaultNodeConfigPath = "config/node.ini"

	DefaultListenAddr  = ":9090"
	DefaultMetricsAddr = ":9100"
	DefaultNodeURL     = "http://localhost:9090"

	DefaultDBBackend   = "leveldb"
	DefaultDBDirectory = "./data/chain"

	DefaultProposeMaxRequests = 20
	DefaultProposeWindowMs    = 1000
)
