// Package blockchaintest provides in-memory airdrop contracts for tests.
package blockchaintest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"tpf-ecosystem/internal/blockchain"
)

// Contract is a scripted AirdropContract. The zero value is in cooldown with
// no time remaining; set CanClaim for an eligible user.
type Contract struct {
	mu sync.Mutex

	CanClaim      bool
	TimeRemaining int64
	Blocked       bool
	Paused        bool
	DailyAmount   *big.Int
	Balance       *big.Int
	Err           error
	SubmitErr     error

	Submitted []common.Address
	Closed    int
}

func (c *Contract) CanUserClaim(ctx context.Context, user common.Address) (bool, *big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, nil, c.Err
	}
	return c.CanClaim, big.NewInt(c.TimeRemaining), nil
}

func (c *Contract) IsBlocked(ctx context.Context, user common.Address) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Blocked, c.Err
}

func (c *Contract) EmergencyPaused(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Paused, c.Err
}

func (c *Contract) DailyAirdropAmount(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if c.DailyAmount == nil {
		return Wei(50), nil
	}
	return c.DailyAmount, nil
}

func (c *Contract) ContractBalance(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Balance == nil {
		return Wei(1_000_000), nil
	}
	return c.Balance, nil
}

func (c *Contract) SubmitClaim(ctx context.Context, user common.Address) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return common.Hash{}, c.Err
	}
	if c.SubmitErr != nil {
		return common.Hash{}, c.SubmitErr
	}
	c.Submitted = append(c.Submitted, user)
	return crypto.Keccak256Hash(user.Bytes(), big.NewInt(int64(len(c.Submitted))).Bytes()), nil
}

func (c *Contract) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed++
}

// Wei converts whole tokens into 18-decimal base units.
func Wei(tokens int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(tokens), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// Network maps endpoints to contracts; endpoints without a contract fail to dial.
type Network struct {
	mu        sync.Mutex
	Contracts map[string]*Contract
	Dialed    []string
}

func NewNetwork() *Network {
	return &Network{Contracts: make(map[string]*Contract)}
}

func (n *Network) Add(endpoint string, c *Contract) *Network {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Contracts[endpoint] = c
	return n
}

func (n *Network) Dial(ctx context.Context, endpoint string) (blockchain.AirdropContract, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Dialed = append(n.Dialed, endpoint)
	c, ok := n.Contracts[endpoint]
	if !ok {
		return nil, fmt.Errorf("dial %s: connection refused", strings.TrimPrefix(endpoint, "https://"))
	}
	return c, nil
}

func (n *Network) DialedEndpoints() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.Dialed))
	copy(out, n.Dialed)
	return out
}
