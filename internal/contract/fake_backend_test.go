package contract

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var errSubscriptionsUnsupported = errors.New("subscriptions unsupported")

// fakeBackend answers view calls from canned ABI-packed results and records
// submitted transactions.
type fakeBackend struct {
	t   *testing.T
	abi *abi.ABI

	mu            sync.Mutex
	code          []byte
	results       map[string][]any
	callErrs      map[string]error
	sendErr       error
	receiptStatus uint64
	noReceipt     bool
	calls         []ethereum.CallMsg
	sent          []*types.Transaction
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	parsed, err := ABI()
	require.NoError(t, err)
	return &fakeBackend{
		t:             t,
		abi:           parsed,
		code:          []byte{0x60, 0x80},
		results:       map[string][]any{},
		callErrs:      map[string]error{},
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) set(method string, values ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[method] = values
}

func (f *fakeBackend) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)

	m, err := f.abi.MethodById(msg.Data[:4])
	require.NoError(f.t, err)
	if err := f.callErrs[m.Name]; err != nil {
		return nil, err
	}
	values, ok := f.results[m.Name]
	if !ok {
		return nil, nil
	}
	out, err := m.Outputs.Pack(values...)
	require.NoError(f.t, err)
	return out, nil
}

func (f *fakeBackend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return f.CodeAt(ctx, account, nil)
}

func (f *fakeBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) FilterLogs(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeBackend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errSubscriptionsUnsupported
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noReceipt {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.receiptStatus, TxHash: hash, BlockNumber: big.NewInt(2)}, nil
}

func (f *fakeBackend) lastCall() ethereum.CallMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.calls)
	return f.calls[len(f.calls)-1]
}

func (f *fakeBackend) sentMethods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.sent))
	for _, tx := range f.sent {
		m, err := f.abi.MethodById(tx.Data()[:4])
		require.NoError(f.t, err)
		names = append(names, m.Name)
	}
	return names
}

func testSigner(t *testing.T) (*bind.TransactOpts, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(31337))
	require.NoError(t, err)
	return opts, crypto.PubkeyToAddress(key.PublicKey)
}
