package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_RPC_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Database.Driver)
	}
	if cfg.Airdrop.ClaimInterval != 24*time.Hour {
		t.Errorf("claim interval = %v", cfg.Airdrop.ClaimInterval)
	}
	if cfg.Promotion.TTL != time.Hour || cfg.Storm.TTL != time.Minute || cfg.Storm.Capacity != 100 {
		t.Errorf("unexpected TTL defaults: %+v %+v", cfg.Promotion, cfg.Storm)
	}
	if len(cfg.Chain.RPCEndpoints) != 3 {
		t.Errorf("expected 3 default endpoints, got %v", cfg.Chain.RPCEndpoints)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: 9000
chain:
  rpc_endpoints:
    - https://rpc-a.example
    - https://rpc-b.example
airdrop:
  claim_interval: 12h
swap:
  rates:
    WLD:
      TPF: "70000"
storm:
  capacity: 50
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("NEXT_PUBLIC_RPC_URL", "https://rpc-b.example")
	t.Setenv("NEXT_PUBLIC_CONTRACT_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("APP_ID", "app_staging_123")
	t.Setenv("DEV_PORTAL_API_KEY", "key_abc")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	want := []string{"https://rpc-b.example", "https://rpc-a.example"}
	if !reflect.DeepEqual(cfg.Chain.RPCEndpoints, want) {
		t.Errorf("endpoints = %v, want %v", cfg.Chain.RPCEndpoints, want)
	}
	if cfg.Chain.ContractAddress != "0x1111111111111111111111111111111111111111" {
		t.Errorf("contract address = %q", cfg.Chain.ContractAddress)
	}
	if cfg.WorldID.AppID != "app_staging_123" || cfg.WorldID.APIKey != "key_abc" {
		t.Errorf("worldid = %+v", cfg.WorldID)
	}
	if cfg.Airdrop.ClaimInterval != 12*time.Hour {
		t.Errorf("claim interval = %v", cfg.Airdrop.ClaimInterval)
	}
	if cfg.Storm.Capacity != 50 {
		t.Errorf("storm capacity = %d", cfg.Storm.Capacity)
	}
	// viper 会把 map 键转为小写
	if cfg.Swap.Rates["wld"]["tpf"] != "70000" {
		t.Errorf("swap rates = %v", cfg.Swap.Rates)
	}
	if cfg.Chain.HasSigner() {
		t.Error("HasSigner() should be false without PRIVATE_KEY")
	}
}

func TestValidateRejectsSQLWithoutDSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "mysql"},
		Chain:    ChainConfig{RPCEndpoints: []string{"https://rpc.example"}},
		Airdrop:  AirdropConfig{ClaimInterval: time.Hour},
		Storm:    StormConfig{Capacity: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for mysql without dsn")
	}
	cfg.Database.DSN = "user:pass@tcp(localhost:3306)/tpf"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestWatchEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  ChainConfig
		want bool
	}{
		{"configured", ChainConfig{TokenAddress: "0xaa", ContractAddress: "0xbb", WatchInterval: 15}, true},
		{"no token", ChainConfig{ContractAddress: "0xbb", WatchInterval: 15}, false},
		{"blank contract", ChainConfig{TokenAddress: "0xaa", ContractAddress: " ", WatchInterval: 15}, false},
		{"interval off", ChainConfig{TokenAddress: "0xaa", ContractAddress: "0xbb"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.WatchEnabled(); got != tt.want {
				t.Errorf("WatchEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
