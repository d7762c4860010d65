package config

// GenesisConfig fixes the chain identity. Every node that applies the
// same blocks under the same genesis configuration reaches the same
// state; none of these values may change after block 0.
type GenesisConfig struct {
	ChainID          string `yaml:"chain_id"`
	HashScheme       string `yaml:"hash_scheme"`
	SignatureScheme  string `yaml:"signature_scheme"`
	WasmVerifierPath string `yaml:"wasm_verifier_path"`
	RequireNonce     bool   `yaml:"require_nonce"`
}

// ConfigFile wraps GenesisConfig under the yaml "config" key
type ConfigFile struct {
	Config GenesisConfig `yaml:"config"`
}

// NodeConfig carries node-local serving addresses; nothing here affects
// chain state.
type NodeConfig struct {
	ListenAddr  string `ini:"listen_addr"`
	MetricsAddr string `ini:"metrics_addr"`
}

// DBConfig selects and locates the chain storage backend
type DBConfig struct {
	Backend   string `ini:"backend"`
	Directory string `ini:"directory"`
	DSN       string `ini:"dsn"`
}

// RPCConfig bounds the propose endpoint and names the origins browser
// clients may call from; an empty list disables CORS headers.
type RPCConfig struct {
	ProposeMaxRequests int      `ini:"propose_max_requests"`
	ProposeWindowMs    int      `ini:"propose_window_ms"`
	AllowedOrigins     []string `ini:"allowed_origins"`
}

// GenesisVerifyConfig holds the trusted minisign key for genesis file
// verification; empty means verification is skipped.
type GenesisVerifyConfig struct {
	MinisignPubKey string `ini:"minisign_pubkey"`
}
