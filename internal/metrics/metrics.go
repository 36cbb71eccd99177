// Package metrics provides process-local counters for chat actions, contract
// calls, RPC traffic and transactions, using atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Session actions
	actionsTotal  atomic.Int64
	actionsErrors atomic.Int64
	actionsBusy   atomic.Int64

	// Contract reads
	contractReads      atomic.Int64
	contractReadErrors atomic.Int64

	// Transactions
	txSubmitted atomic.Int64
	txFinalized atomic.Int64
	txFailed    atomic.Int64

	// RPC
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64

	// Wallet connection cache
	connReused   atomic.Int64
	connPrompted atomic.Int64
}

// Global is the global metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordAction records the outcome of a session action.
func (m *Metrics) RecordAction(err error) {
	m.actionsTotal.Add(1)
	if err != nil {
		m.actionsErrors.Add(1)
	}
}

// RecordBusy records an action rejected because another was in flight.
func (m *Metrics) RecordBusy() {
	m.actionsBusy.Add(1)
}

// RecordContractRead records a view call against the chat contract.
func (m *Metrics) RecordContractRead(err error) {
	m.contractReads.Add(1)
	if err != nil {
		m.contractReadErrors.Add(1)
	}
}

// RecordTxSubmitted records a transaction accepted by the node.
func (m *Metrics) RecordTxSubmitted() {
	m.txSubmitted.Add(1)
}

// RecordTxFinalized records the final outcome of a submitted transaction.
func (m *Metrics) RecordTxFinalized(err error) {
	if err != nil {
		m.txFailed.Add(1)
		return
	}
	m.txFinalized.Add(1)
}

// RecordRPCCall records an RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}
}

// RecordConnection records whether a wallet connection reused an authorization
// or required a prompt.
func (m *Metrics) RecordConnection(reused bool) {
	if reused {
		m.connReused.Add(1)
		return
	}
	m.connPrompted.Add(1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	ActionsTotal       int64 `json:"actions_total"`
	ActionsErrors      int64 `json:"actions_errors"`
	ActionsBusy        int64 `json:"actions_busy"`
	ContractReads      int64 `json:"contract_reads"`
	ContractReadErrors int64 `json:"contract_read_errors"`
	TxSubmitted        int64 `json:"tx_submitted"`
	TxFinalized        int64 `json:"tx_finalized"`
	TxFailed           int64 `json:"tx_failed"`
	RPCCallsTotal      int64 `json:"rpc_calls_total"`
	RPCErrorsTotal     int64 `json:"rpc_errors_total"`
	RPCLatencyNanos    int64 `json:"rpc_latency_nanos"`
	ConnReused         int64 `json:"connections_reused"`
	ConnPrompted       int64 `json:"connections_prompted"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ActionsTotal:       m.actionsTotal.Load(),
		ActionsErrors:      m.actionsErrors.Load(),
		ActionsBusy:        m.actionsBusy.Load(),
		ContractReads:      m.contractReads.Load(),
		ContractReadErrors: m.contractReadErrors.Load(),
		TxSubmitted:        m.txSubmitted.Load(),
		TxFinalized:        m.txFinalized.Load(),
		TxFailed:           m.txFailed.Load(),
		RPCCallsTotal:      m.rpcCallsTotal.Load(),
		RPCErrorsTotal:     m.rpcErrorsTotal.Load(),
		RPCLatencyNanos:    m.rpcLatencyNanos.Load(),
		ConnReused:         m.connReused.Load(),
		ConnPrompted:       m.connPrompted.Load(),
	}
}

// RPCLatencyAvgMs returns the average RPC latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.rpcLatencyNanos.Load()) / float64(calls) / 1e6
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Int64{
		&m.actionsTotal, &m.actionsErrors, &m.actionsBusy,
		&m.contractReads, &m.contractReadErrors,
		&m.txSubmitted, &m.txFinalized, &m.txFailed,
		&m.rpcCallsTotal, &m.rpcErrorsTotal, &m.rpcLatencyNanos,
		&m.connReused, &m.connPrompted,
	} {
		c.Store(0)
	}
}
