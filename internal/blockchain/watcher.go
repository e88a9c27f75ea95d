package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/internal/metrics"
	"tpf-ecosystem/pkg/logger"
)

// LogSource 拉取事件日志所需的节点接口，*ethclient.Client 满足该接口
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

type LogDialer func(ctx context.Context, endpoint string) (LogSource, error)

func DialLogs(ctx context.Context, endpoint string) (LogSource, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ClaimEvent 空投合约转出 TPF 的一次领取
type ClaimEvent struct {
	User        string
	Amount      *big.Int
	TxHash      string
	BlockNumber uint64
	Time        time.Time
}

type ClaimHandler func(ctx context.Context, event ClaimEvent) error

type handlerError struct{ err error }

func (e *handlerError) Error() string { return "claim handler: " + e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }

// ClaimWatcher 轮询代币合约的 Transfer 事件，把从空投合约转出的记录视为领取
// 用户在钱包里直接调用合约领取时，本地领取记录由此保持同步
type ClaimWatcher struct {
	endpoints     []string
	dial          LogDialer
	token         common.Address
	airdrop       common.Address
	interval      time.Duration
	confirmations uint64
	batchSize     uint64
	handle        ClaimHandler

	started      bool
	lastBlock    atomic.Uint64
	isProcessing int32
	stopOnce     sync.Once
	stopChan     chan struct{}
}

func NewClaimWatcher(chainCfg *config.ChainConfig, dial LogDialer, handle ClaimHandler) *ClaimWatcher {
	batch := chainCfg.BatchSize
	if batch == 0 {
		batch = 500
	}
	if batch > 5000 {
		batch = 5000
	}
	eps := make([]string, len(chainCfg.RPCEndpoints))
	copy(eps, chainCfg.RPCEndpoints)

	return &ClaimWatcher{
		endpoints:     eps,
		dial:          dial,
		token:         common.HexToAddress(strings.TrimSpace(chainCfg.TokenAddress)),
		airdrop:       common.HexToAddress(strings.TrimSpace(chainCfg.ContractAddress)),
		interval:      time.Duration(chainCfg.WatchInterval) * time.Second,
		confirmations: chainCfg.Confirmations,
		batchSize:     batch,
		handle:        handle,
		stopChan:      make(chan struct{}),
	}
}

// Start 阻塞运行直到 ctx 取消或调用 Stop
func (w *ClaimWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.WithFields(map[string]interface{}{
		"token":    w.token.Hex(),
		"airdrop":  w.airdrop.Hex(),
		"interval": w.interval.String(),
	}).Info("Claim watcher started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Claim watcher stopped: context cancelled")
			return
		case <-w.stopChan:
			logger.Info("Claim watcher stopped")
			return
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				logger.WithError(err).Warn("Claim watcher poll failed")
			}
		}
	}
}

func (w *ClaimWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// LastBlock 已处理到的区块高度
func (w *ClaimWatcher) LastBlock() uint64 {
	return w.lastBlock.Load()
}

// Poll 处理一批已确认区块；上一次还未结束时直接跳过
func (w *ClaimWatcher) Poll(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&w.isProcessing, 0, 1) {
		logger.Warn("Previous claim poll still running, skipping")
		return nil
	}
	defer atomic.StoreInt32(&w.isProcessing, 0)

	failures := make([]error, 0, len(w.endpoints))
	for _, endpoint := range w.endpoints {
		src, err := w.dial(ctx, endpoint)
		if err != nil {
			metrics.RPCAttemptsTotal.WithLabelValues(endpoint, "failure").Inc()
			failures = append(failures, fmt.Errorf("%s: %w", endpoint, err))
			continue
		}
		err = w.pollSource(ctx, src)
		src.Close()

		var herr *handlerError
		if err == nil || errors.As(err, &herr) {
			return err
		}
		metrics.RPCAttemptsTotal.WithLabelValues(endpoint, "failure").Inc()
		failures = append(failures, fmt.Errorf("%s: %w", endpoint, err))
	}
	if len(failures) == 0 {
		return ErrAllEndpointsFailed
	}
	return fmt.Errorf("%w: %w", ErrAllEndpointsFailed, errors.Join(failures...))
}

func (w *ClaimWatcher) pollSource(ctx context.Context, src LogSource) error {
	head, err := src.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < w.confirmations {
		return nil
	}
	confirmed := head - w.confirmations

	// 首次运行从最近一个批次开始，不回溯全部历史
	if !w.started {
		start := uint64(0)
		if confirmed > w.batchSize {
			start = confirmed - w.batchSize
		}
		w.lastBlock.Store(start)
		w.started = true
	}

	last := w.lastBlock.Load()
	if confirmed <= last {
		return nil
	}
	from := last + 1
	to := confirmed
	if to-from+1 > w.batchSize {
		to = from + w.batchSize - 1
	}

	logs, err := src.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{w.token},
		Topics:    [][]common.Hash{{TransferTopic}, {common.BytesToHash(w.airdrop.Bytes())}},
	})
	if err != nil {
		return err
	}

	blockTimes := make(map[uint64]time.Time)
	claims := 0
	for _, log := range logs {
		if log.Removed {
			continue
		}
		event, err := ParseTransferLog(log)
		if err != nil {
			logger.WithError(err).Debug("Skipping unparseable log")
			continue
		}
		if event.From != w.airdrop {
			continue
		}

		at, ok := blockTimes[event.BlockNum]
		if !ok {
			header, err := src.HeaderByNumber(ctx, new(big.Int).SetUint64(event.BlockNum))
			if err != nil {
				return err
			}
			at = time.Unix(int64(header.Time), 0)
			blockTimes[event.BlockNum] = at
		}

		if err := w.handle(ctx, ClaimEvent{
			User:        strings.ToLower(event.To.Hex()),
			Amount:      event.Value,
			TxHash:      event.TxHash,
			BlockNumber: event.BlockNum,
			Time:        at,
		}); err != nil {
			return &handlerError{err: err}
		}
		claims++
	}

	w.lastBlock.Store(to)
	logger.WithFields(map[string]interface{}{
		"from_block": from,
		"to_block":   to,
		"claims":     claims,
	}).Debug("Claim watcher processed blocks")
	return nil
}
