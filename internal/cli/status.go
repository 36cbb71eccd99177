package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/metrics"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection, profile and session counters",
	Long: `Connect the wallet and report the account, network and profile.

With --verbose the counters collected while connecting are shown as well:
session actions, contract reads, transactions and RPC latency.`,
	Example: `  chatbuddy status
  chatbuddy status --verbose
  chatbuddy status -o json`,
	GroupID: "chat",
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusView struct {
	profileView

	Metrics      *metrics.Snapshot `json:"metrics,omitempty"`
	RPCLatencyMs float64           `json:"rpc_latency_avg_ms,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	chat, err := connectChat(ctx, cc, true)
	if err != nil {
		return err
	}

	view := statusView{profileView: newProfileView(chat.Snapshot())}
	if cc.Config.Output.Verbose {
		snap := cc.Metrics.Snapshot()
		view.Metrics = &snap
		view.RPCLatencyMs = cc.Metrics.RPCLatencyAvgMs()
	}

	return cc.Fmt.Emit(view, func(w io.Writer) error {
		writeProfile(w, cmd.ErrOrStderr(), view.profileView)
		if view.Metrics == nil {
			return nil
		}
		m := view.Metrics
		outln(w)
		out(w, "Actions:        %d (%d failed, %d busy)\n", m.ActionsTotal, m.ActionsErrors, m.ActionsBusy)
		out(w, "Contract reads: %d (%d failed)\n", m.ContractReads, m.ContractReadErrors)
		out(w, "Transactions:   %d submitted, %d mined, %d failed\n", m.TxSubmitted, m.TxFinalized, m.TxFailed)
		out(w, "RPC calls:      %d (%d failed, avg %.1f ms)\n", m.RPCCallsTotal, m.RPCErrorsTotal, view.RPCLatencyMs)
		return nil
	})
}
