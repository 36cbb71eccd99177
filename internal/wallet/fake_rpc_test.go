package wallet

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeRPC is a scripted node. chainErrs are returned by ChainID in order
// before the real answer.
type fakeRPC struct {
	chainID atomic.Int64

	mu        sync.Mutex
	chainErrs []error
	sendErr   error
	chainCall int
	sendCalls int
	closed    bool
}

func newFakeRPC(chainID int64) *fakeRPC {
	f := &fakeRPC{}
	f.chainID.Store(chainID)
	return f
}

func (f *fakeRPC) ChainID(_ context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainCall++
	if len(f.chainErrs) > 0 {
		err := f.chainErrs[0]
		f.chainErrs = f.chainErrs[1:]
		return nil, err
	}
	return big.NewInt(f.chainID.Load()), nil
}

func (f *fakeRPC) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeRPC) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeRPC) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeRPC) PendingCodeAt(_ context.Context, _ common.Address) ([]byte, error) {
	return nil, nil
}

func (f *fakeRPC) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeRPC) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeRPC) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeRPC) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 21_000, nil
}

func (f *fakeRPC) SendTransaction(_ context.Context, _ *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	return f.sendErr
}

func (f *fakeRPC) FilterLogs(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeRPC) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- types.Log) (ethereum.Subscription, error) {
	return nil, ethereum.NotFound
}

func (f *fakeRPC) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *fakeRPC) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeRPC) counts() (chainCalls, sendCalls int, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainCall, f.sendCalls, f.closed
}
