package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/logx"
)

// LoadGenesisConfig decodes genesis.yml and fills in scheme defaults
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open genesis config: %w", err)
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode genesis config: %w", err)
	}

	cfg := &cfgFile.Config
	if cfg.ChainID == "" {
		return nil, fmt.Errorf("genesis config must set chain_id")
	}
	if cfg.HashScheme == "" {
		cfg.HashScheme = crypto.HashSchemeSHA256
	}
	if cfg.SignatureScheme == "" {
		cfg.SignatureScheme = crypto.SigSchemeEd25519
	}
	if cfg.SignatureScheme == crypto.SigSchemeWasm && cfg.WasmVerifierPath == "" {
		return nil, fmt.Errorf("wasm signature scheme requires wasm_verifier_path")
	}

	logx.Info("CONFIG", fmt.Sprintf("Loaded genesis config: chain_id=%s hash=%s signature=%s require_nonce=%t",
		cfg.ChainID, cfg.HashScheme, cfg.SignatureScheme, cfg.RequireNonce))
	return cfg, nil
}

// LoadNodeConfig reads the [node] section from an .ini file
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	nodeCfg := &NodeConfig{}
	if err := cfg.Section("node").MapTo(nodeCfg); err != nil {
		return nil, err
	}
	if nodeCfg.ListenAddr == "" {
		nodeCfg.ListenAddr = DefaultListenAddr
	}
	if nodeCfg.MetricsAddr == "" {
		nodeCfg.MetricsAddr = DefaultMetricsAddr
	}
	return nodeCfg, nil
}

// LoadDBConfig reads the [db] section from an .ini file
func LoadDBConfig(path string) (*DBConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	dbCfg := &DBConfig{}
	if err := cfg.Section("db").MapTo(dbCfg); err != nil {
		return nil, err
	}
	if dbCfg.Backend == "" {
		dbCfg.Backend = DefaultDBBackend
	}
	if dbCfg.Directory == "" {
		dbCfg.Directory = DefaultDBDirectory
	}
	return dbCfg, nil
}

// LoadRPCConfig reads the [rpc] section from an .ini file
func LoadRPCConfig(path string) (*RPCConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	rpcCfg := &RPCConfig{}
	if err := cfg.Section("rpc").MapTo(rpcCfg); err != nil {
		return nil, err
	}
	if rpcCfg.ProposeMaxRequests <= 0 {
		rpcCfg.ProposeMaxRequests = DefaultProposeMaxRequests
	}
	if rpcCfg.ProposeWindowMs <= 0 {
		rpcCfg.ProposeWindowMs = DefaultProposeWindowMs
	}
	return rpcCfg, nil
}

// LoadGenesisVerifyConfig reads the [genesis] section from an .ini file
func LoadGenesisVerifyConfig(path string) (*GenesisVerifyConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	verifyCfg := &GenesisVerifyConfig{}
	if err := cfg.Section("genesis").MapTo(verifyCfg); err != nil {
		return nil, err
	}
	return verifyCfg, nil
}
