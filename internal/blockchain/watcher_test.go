package blockchain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"tpf-ecosystem/internal/blockchain"
	"tpf-ecosystem/internal/config"
)

var (
	tokenAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	airdropAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	alice       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob         = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

// chain serves logs by block range; topic filters are left to the watcher
type chain struct {
	head    uint64
	logs    []types.Log
	queries []ethereum.FilterQuery
	err     error
}

func (c *chain) BlockNumber(ctx context.Context) (uint64, error) { return c.head, c.err }

func (c *chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.queries = append(c.queries, q)
	var out []types.Log
	for _, l := range c.logs {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *chain) HeaderByNumber(ctx context.Context, n *big.Int) (*types.Header, error) {
	return &types.Header{Number: n, Time: 1_700_000_000 + n.Uint64()*2}, nil
}

func (c *chain) Close() {}

func transferLog(from, to common.Address, block uint64) types.Log {
	return types.Log{
		Address:     tokenAddr,
		Topics:      []common.Hash{blockchain.TransferTopic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        common.LeftPadBytes(big.NewInt(50).Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func watcherConfig(endpoints ...string) *config.ChainConfig {
	return &config.ChainConfig{
		RPCEndpoints:    endpoints,
		ContractAddress: airdropAddr.Hex(),
		TokenAddress:    tokenAddr.Hex(),
		WatchInterval:   1,
		Confirmations:   2,
		BatchSize:       10,
	}
}

func TestClaimWatcherEmitsAirdropTransfers(t *testing.T) {
	src := &chain{head: 22, logs: []types.Log{
		transferLog(airdropAddr, alice, 12),
		transferLog(bob, alice, 15),
		transferLog(airdropAddr, bob, 20),
	}}
	dial := func(ctx context.Context, endpoint string) (blockchain.LogSource, error) {
		if endpoint == "https://down.example" {
			return nil, errors.New("connection refused")
		}
		return src, nil
	}

	var got []blockchain.ClaimEvent
	w := blockchain.NewClaimWatcher(watcherConfig("https://down.example", "https://up.example"), dial,
		func(ctx context.Context, e blockchain.ClaimEvent) error {
			got = append(got, e)
			return nil
		})

	if err := w.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if w.LastBlock() != 20 {
		t.Errorf("LastBlock() = %d, want 20", w.LastBlock())
	}
	if len(got) != 2 {
		t.Fatalf("events = %+v, want 2 airdrop transfers", got)
	}
	if got[0].User != "0x00000000000000000000000000000000000000a1" || got[0].Time.Unix() != 1_700_000_024 {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Amount.Int64() != 50 || got[1].BlockNumber != 20 {
		t.Errorf("second event = %+v", got[1])
	}

	q := src.queries[0]
	if q.FromBlock.Uint64() != 11 || q.ToBlock.Uint64() != 20 || q.Addresses[0] != tokenAddr {
		t.Errorf("query = %+v", q)
	}

	// nothing new confirmed
	if err := w.Poll(context.Background()); err != nil || len(src.queries) != 1 {
		t.Errorf("second poll: err=%v queries=%d", err, len(src.queries))
	}
}

func TestClaimWatcherRetriesBatchWhenHandlerFails(t *testing.T) {
	src := &chain{head: 12, logs: []types.Log{transferLog(airdropAddr, alice, 5)}}
	dial := func(ctx context.Context, endpoint string) (blockchain.LogSource, error) { return src, nil }

	fail := true
	calls := 0
	w := blockchain.NewClaimWatcher(watcherConfig("https://a.example", "https://b.example"), dial,
		func(ctx context.Context, e blockchain.ClaimEvent) error {
			calls++
			if fail {
				return errors.New("database unavailable")
			}
			return nil
		})

	if err := w.Poll(context.Background()); err == nil {
		t.Fatal("handler failure not reported")
	}
	if calls != 1 {
		t.Errorf("handler failure fell through to the next endpoint: %d calls", calls)
	}
	if w.LastBlock() != 0 {
		t.Errorf("LastBlock() advanced to %d despite failure", w.LastBlock())
	}

	fail = false
	if err := w.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 2 || w.LastBlock() != 10 {
		t.Errorf("calls=%d lastBlock=%d", calls, w.LastBlock())
	}
}

func TestClaimWatcherAllEndpointsFail(t *testing.T) {
	dial := func(ctx context.Context, endpoint string) (blockchain.LogSource, error) {
		return &chain{err: errors.New("rate limited")}, nil
	}
	w := blockchain.NewClaimWatcher(watcherConfig("https://a.example"), dial,
		func(ctx context.Context, e blockchain.ClaimEvent) error { return nil })

	if err := w.Poll(context.Background()); !errors.Is(err, blockchain.ErrAllEndpointsFailed) {
		t.Errorf("error = %v", err)
	}
}

func TestParseTransferLogRejectsOtherEvents(t *testing.T) {
	l := transferLog(airdropAddr, alice, 1)
	l.Topics[0] = common.HexToHash("0x01")
	if _, err := blockchain.ParseTransferLog(l); !errors.Is(err, blockchain.ErrInvalidLogFormat) {
		t.Errorf("error = %v", err)
	}
}
