package blockchain_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"reflect"
	"testing"

	"tpf-ecosystem/internal/blockchain"
	"tpf-ecosystem/internal/blockchain/blockchaintest"
	"tpf-ecosystem/pkg/logger"
)

func init() {
	logger.SetOutput(io.Discard)
}

func dailyAmount(ctx context.Context, c blockchain.AirdropContract) (*big.Int, error) {
	return c.DailyAirdropAmount(ctx)
}

func TestResolveUsesFirstHealthyEndpoint(t *testing.T) {
	endpoints := []string{"https://rpc-1.example", "https://rpc-2.example", "https://rpc-3.example"}
	third := &blockchaintest.Contract{DailyAmount: big.NewInt(42)}
	net := blockchaintest.NewNetwork().
		Add("https://rpc-2.example", &blockchaintest.Contract{Err: errors.New("execution reverted")}).
		Add("https://rpc-3.example", third)

	r := blockchain.NewResolver(endpoints, net.Dial)
	value, used, err := blockchain.Resolve(context.Background(), r, dailyAmount)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if value.Int64() != 42 {
		t.Errorf("value = %v, want 42", value)
	}
	if used != "https://rpc-3.example" {
		t.Errorf("endpointUsed = %q", used)
	}
	if !reflect.DeepEqual(net.DialedEndpoints(), endpoints) {
		t.Errorf("dialed = %v, want sequential walk %v", net.DialedEndpoints(), endpoints)
	}
	if third.Closed != 1 {
		t.Errorf("winning connection closed %d times, want 1", third.Closed)
	}
}

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	net := blockchaintest.NewNetwork().
		Add("https://a.example", &blockchaintest.Contract{}).
		Add("https://b.example", &blockchaintest.Contract{})

	r := blockchain.NewResolver([]string{"https://a.example", "https://b.example"}, net.Dial)
	_, used, err := blockchain.Resolve(context.Background(), r, dailyAmount)
	if err != nil {
		t.Fatal(err)
	}
	if used != "https://a.example" {
		t.Errorf("endpointUsed = %q", used)
	}
	if got := net.DialedEndpoints(); len(got) != 1 {
		t.Errorf("dialed %v, want only the first endpoint", got)
	}
}

func TestResolveAllEndpointsFail(t *testing.T) {
	r := blockchain.NewResolver([]string{"https://a.example", "https://b.example", "https://c.example"}, blockchaintest.NewNetwork().Dial)
	_, used, err := blockchain.Resolve(context.Background(), r, dailyAmount)
	if !errors.Is(err, blockchain.ErrAllEndpointsFailed) {
		t.Fatalf("err = %v, want ErrAllEndpointsFailed", err)
	}
	if used != "" {
		t.Errorf("endpointUsed = %q, want empty", used)
	}
}

func TestResolveNoEndpoints(t *testing.T) {
	r := blockchain.NewResolver(nil, blockchaintest.NewNetwork().Dial)
	_, _, err := blockchain.Resolve(context.Background(), r, dailyAmount)
	if !errors.Is(err, blockchain.ErrAllEndpointsFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestResolveHonoursCancelledContext(t *testing.T) {
	net := blockchaintest.NewNetwork().Add("https://a.example", &blockchaintest.Contract{})
	r := blockchain.NewResolver([]string{"https://a.example"}, net.Dial)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := blockchain.Resolve(ctx, r, dailyAmount)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled in chain", err)
	}
	if len(net.DialedEndpoints()) != 0 {
		t.Error("no endpoint should be dialed after cancellation")
	}
}

func TestFormatAndParseUnits(t *testing.T) {
	if got := blockchain.FormatUnits(blockchaintest.Wei(50), blockchain.TokenDecimals); got != "50" {
		t.Errorf("FormatUnits = %q, want 50", got)
	}
	if got := blockchain.FormatUnits(big.NewInt(1), blockchain.TokenDecimals); got != "0.000000000000000001" {
		t.Errorf("FormatUnits(1 wei) = %q", got)
	}
	wei, err := blockchain.ParseUnits("1.5", blockchain.TokenDecimals)
	if err != nil {
		t.Fatal(err)
	}
	if wei.String() != "1500000000000000000" {
		t.Errorf("ParseUnits = %s", wei)
	}
}
