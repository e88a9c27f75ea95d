package blockchain

import (
	"context"
	"errors"
	"fmt"

	"tpf-ecosystem/internal/metrics"
	"tpf-ecosystem/pkg/logger"
)

// ErrAllEndpointsFailed 所有RPC节点都失败时返回，调用方据此决定是否降级
var ErrAllEndpointsFailed = errors.New("all rpc endpoints failed")

// Dialer 建立到单个RPC节点的合约连接
type Dialer func(ctx context.Context, endpoint string) (AirdropContract, error)

// Resolver 按优先级顺序依次尝试RPC节点
// 单个节点失败不重试，直接换下一个；每次调用都从第一个节点开始
type Resolver struct {
	endpoints []string
	dial      Dialer
}

func NewResolver(endpoints []string, dial Dialer) *Resolver {
	eps := make([]string, len(endpoints))
	copy(eps, endpoints)
	return &Resolver{endpoints: eps, dial: dial}
}

func (r *Resolver) Endpoints() []string {
	out := make([]string, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Resolve 在第一个成功执行 check 的节点上返回结果及该节点地址
// 全部失败时返回包装了 ErrAllEndpointsFailed 的错误
func Resolve[T any](ctx context.Context, r *Resolver, check func(context.Context, AirdropContract) (T, error)) (T, string, error) {
	var zero T
	failures := make([]error, 0, len(r.endpoints))

	for i, endpoint := range r.endpoints {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		value, err := attempt(ctx, r.dial, endpoint, check)
		if err == nil {
			metrics.RPCAttemptsTotal.WithLabelValues(endpoint, "success").Inc()
			logger.WithFields(map[string]interface{}{
				"endpoint": endpoint,
				"attempt":  i + 1,
			}).Debug("RPC endpoint resolved")
			return value, endpoint, nil
		}

		metrics.RPCAttemptsTotal.WithLabelValues(endpoint, "failure").Inc()
		logger.WithFields(map[string]interface{}{
			"endpoint": endpoint,
			"attempt":  i + 1,
			"error":    err.Error(),
		}).Warn("RPC endpoint failed, trying next")
		failures = append(failures, fmt.Errorf("%s: %w", endpoint, err))
	}

	if len(failures) == 0 {
		return zero, "", ErrAllEndpointsFailed
	}
	return zero, "", fmt.Errorf("%w: %w", ErrAllEndpointsFailed, errors.Join(failures...))
}

func attempt[T any](ctx context.Context, dial Dialer, endpoint string, check func(context.Context, AirdropContract) (T, error)) (T, error) {
	var zero T
	contract, err := dial(ctx, endpoint)
	if err != nil {
		return zero, err
	}
	defer contract.Close()

	return check(ctx, contract)
}
