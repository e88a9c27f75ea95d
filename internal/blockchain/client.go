package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// TokenDecimals TPF 与 WLD 都是18位精度
const TokenDecimals = 18

// AirdropContract 空投合约的只读查询与领取提交
type AirdropContract interface {
	CanUserClaim(ctx context.Context, user common.Address) (bool, *big.Int, error)
	IsBlocked(ctx context.Context, user common.Address) (bool, error)
	EmergencyPaused(ctx context.Context) (bool, error)
	DailyAirdropAmount(ctx context.Context) (*big.Int, error)
	ContractBalance(ctx context.Context) (*big.Int, error)
	SubmitClaim(ctx context.Context, user common.Address) (common.Hash, error)
	Close()
}

type Client struct {
	endpoint string
	contract common.Address
	client   *ethclient.Client
	signer   *ecdsa.PrivateKey
	gasLimit uint64
}

// NewClient 连接指定RPC节点并绑定空投合约
func NewClient(ctx context.Context, endpoint string, chainCfg *config.ChainConfig) (*Client, error) {
	if !common.IsHexAddress(chainCfg.ContractAddress) {
		return nil, errors.Configuration("NEXT_PUBLIC_CONTRACT_ADDRESS is missing or invalid")
	}

	var signer *ecdsa.PrivateKey
	if chainCfg.HasSigner() {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(chainCfg.PrivateKey), "0x"))
		if err != nil {
			return nil, errors.New(errors.ErrConfiguration, "PRIVATE_KEY is not a valid secp256k1 key", err)
		}
		signer = key
	}

	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errors.New(errors.ErrRPConnect,
			fmt.Sprintf("连接RPC失败: %s", endpoint), err)
	}

	return &Client{
		endpoint: endpoint,
		contract: common.HexToAddress(chainCfg.ContractAddress),
		client:   client,
		signer:   signer,
		gasLimit: chainCfg.GasLimit,
	}, nil
}

// Dial 返回按配置建立合约客户端的拨号函数，供 Resolver 使用
func Dial(chainCfg *config.ChainConfig) Dialer {
	return func(ctx context.Context, endpoint string) (AirdropContract, error) {
		return NewClient(ctx, endpoint, chainCfg)
	}
}

// Close 关闭RPC连接
func (c *Client) Close() {
	c.client.Close()
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsedAirdropABI.Pack(method, args...)
	if err != nil {
		return nil, errors.New(errors.ErrContractCall, "编码合约调用失败: "+method, err)
	}

	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, errors.New(errors.ErrContractCall, "合约调用失败: "+method, err)
	}
	// 空返回通常意味着该网络上合约未部署
	if len(out) == 0 {
		return nil, errors.New(errors.ErrContractCall,
			fmt.Sprintf("合约 %s 在 %s 上无返回", c.contract.Hex(), c.endpoint), nil)
	}

	values, err := parsedAirdropABI.Unpack(method, out)
	if err != nil {
		return nil, errors.New(errors.ErrContractCall, "解码合约返回失败: "+method, err)
	}
	return values, nil
}

// CanUserClaim 查询用户是否可领取以及距下次领取的秒数
func (c *Client) CanUserClaim(ctx context.Context, user common.Address) (bool, *big.Int, error) {
	values, err := c.call(ctx, "canUserClaim", user)
	if err != nil {
		return false, nil, err
	}
	if len(values) != 2 {
		return false, nil, errors.New(errors.ErrContractCall, "canUserClaim 返回值数量异常", nil)
	}
	canClaim, ok1 := values[0].(bool)
	remaining, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return false, nil, errors.New(errors.ErrContractCall, "canUserClaim 返回值类型异常", nil)
	}
	return canClaim, remaining, nil
}

func (c *Client) IsBlocked(ctx context.Context, user common.Address) (bool, error) {
	return c.callBool(ctx, "isBlocked", user)
}

func (c *Client) EmergencyPaused(ctx context.Context) (bool, error) {
	return c.callBool(ctx, "emergencyPaused")
}

func (c *Client) DailyAirdropAmount(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "dailyAirdrop")
}

// ContractBalance 合约中剩余可发放的TPF数量(wei)
func (c *Client) ContractBalance(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "getContractBalance")
}

func (c *Client) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	values, err := c.call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	v, ok := values[0].(bool)
	if !ok {
		return false, errors.New(errors.ErrContractCall, method+" 返回值类型异常", nil)
	}
	return v, nil
}

func (c *Client) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.New(errors.ErrContractCall, method+" 返回值类型异常", nil)
	}
	return v, nil
}

// SubmitClaim 使用配置的私钥代用户提交 claimFor 交易
func (c *Client) SubmitClaim(ctx context.Context, user common.Address) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, errors.Configuration("PRIVATE_KEY is not configured")
	}

	data, err := parsedAirdropABI.Pack("claimFor", user)
	if err != nil {
		return common.Hash{}, errors.New(errors.ErrContractCall, "编码 claimFor 失败", err)
	}

	from := crypto.PubkeyToAddress(c.signer.PublicKey)
	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, errors.New(errors.ErrContractCall, "获取nonce失败", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, errors.New(errors.ErrContractCall, "获取gas价格失败", err)
	}
	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, errors.New(errors.ErrContractCall, "获取chain id失败", err)
	}

	gas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &c.contract, Data: data})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"endpoint":  c.endpoint,
			"gas_limit": c.gasLimit,
		}).Warn("Gas estimation failed, using configured gas limit")
		gas = c.gasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.signer)
	if err != nil {
		return common.Hash{}, errors.New(errors.ErrContractCall, "签名交易失败", err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, errors.New(errors.ErrContractCall, "发送交易失败", err)
	}

	logger.WithFields(map[string]interface{}{
		"endpoint": c.endpoint,
		"user":     strings.ToLower(user.Hex()),
		"tx_hash":  signed.Hash().Hex(),
	}).Info("Claim transaction submitted")

	return signed.Hash(), nil
}

// FormatUnits 将最小单位数量转换为带小数的十进制字符串
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ParseUnits 将十进制字符串转换为最小单位数量
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, err
	}
	return d.Shift(decimals).BigInt(), nil
}
