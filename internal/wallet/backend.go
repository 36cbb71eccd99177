package wallet

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/chatbuddy/internal/chain"
	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/metrics"
)

// RPCClient is a node connection. *ethclient.Client implements it.
type RPCClient interface {
	contract.Backend
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// rpcBackend throttles, retries and measures every call to one endpoint.
// Transaction submission is never retried.
type rpcBackend struct {
	client   RPCClient
	endpoint string
	limiter  *chain.RateLimiter
	retry    chain.RetryConfig
	metrics  *metrics.Metrics
	log      config.LogWriter
}

func invoke[T any](ctx context.Context, b *rpcBackend, name string, retry bool, op func() (T, error)) (T, error) {
	cfg := b.retry
	if !retry {
		cfg.MaxAttempts = 1
	}

	start := time.Now()
	v, err := chain.RetryWithConfig(ctx, cfg, func() (T, error) {
		if err := b.limiter.Wait(ctx, b.endpoint); err != nil {
			var zero T
			return zero, err
		}
		return op()
	})

	// A missing receipt is the normal answer while a transaction is pending.
	if errors.Is(err, ethereum.NotFound) {
		b.metrics.RecordRPCCall(time.Since(start), nil)
		return v, err
	}
	b.metrics.RecordRPCCall(time.Since(start), err)
	if err != nil {
		b.log.Debug("rpc %s on %s failed: %v", name, b.endpoint, err)
	}
	return v, err
}

func (b *rpcBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return invoke(ctx, b, "eth_chainId", true, func() (*big.Int, error) {
		return b.client.ChainID(ctx)
	})
}

func (b *rpcBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return invoke(ctx, b, "eth_getCode", true, func() ([]byte, error) {
		return b.client.CodeAt(ctx, account, blockNumber)
	})
}

func (b *rpcBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return invoke(ctx, b, "eth_call", true, func() ([]byte, error) {
		return b.client.CallContract(ctx, call, blockNumber)
	})
}

func (b *rpcBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return invoke(ctx, b, "eth_getBlockByNumber", true, func() (*types.Header, error) {
		return b.client.HeaderByNumber(ctx, number)
	})
}

func (b *rpcBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return invoke(ctx, b, "eth_getCode", true, func() ([]byte, error) {
		return b.client.PendingCodeAt(ctx, account)
	})
}

func (b *rpcBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return invoke(ctx, b, "eth_getTransactionCount", true, func() (uint64, error) {
		return b.client.PendingNonceAt(ctx, account)
	})
}

func (b *rpcBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return invoke(ctx, b, "eth_gasPrice", true, func() (*big.Int, error) {
		return b.client.SuggestGasPrice(ctx)
	})
}

func (b *rpcBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return invoke(ctx, b, "eth_maxPriorityFeePerGas", true, func() (*big.Int, error) {
		return b.client.SuggestGasTipCap(ctx)
	})
}

func (b *rpcBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return invoke(ctx, b, "eth_estimateGas", true, func() (uint64, error) {
		return b.client.EstimateGas(ctx, call)
	})
}

func (b *rpcBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := invoke(ctx, b, "eth_sendRawTransaction", false, func() (struct{}, error) {
		return struct{}{}, b.client.SendTransaction(ctx, tx)
	})
	return err
}

func (b *rpcBackend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return invoke(ctx, b, "eth_getLogs", true, func() ([]types.Log, error) {
		return b.client.FilterLogs(ctx, query)
	})
}

func (b *rpcBackend) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return b.client.SubscribeFilterLogs(ctx, query, ch)
}

func (b *rpcBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return invoke(ctx, b, "eth_getTransactionReceipt", true, func() (*types.Receipt, error) {
		return b.client.TransactionReceipt(ctx, txHash)
	})
}

func (b *rpcBackend) Close() {
	b.client.Close()
}
