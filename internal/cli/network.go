package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/network"
	"github.com/mrz1836/chatbuddy/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var networkCmd = &cobra.Command{
	Use:     "network",
	Short:   "Inspect supported networks",
	Long:    `Show the networks chatbuddy can chat on and where their ChatApp contract lives.`,
	GroupID: "wallet",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks and their contracts",
	Long: `List Holesky and the local hardhat network with their chain id, RPC endpoint
and resolved ChatApp address.

The localhost address is read from the deployment artifact on every call, so
a fresh deploy shows up immediately. A missing artifact is reported as not
deployed.`,
	Example: `  chatbuddy network list
  chatbuddy network list -o json`,
	Args: cobra.NoArgs,
	RunE: runNetworkList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(networkCmd)
	networkCmd.AddCommand(networkListCmd)
}

// networkView is one row of network list.
type networkView struct {
	Name     string `json:"name"`
	ChainID  int64  `json:"chain_id"`
	RPC      string `json:"rpc"`
	Contract string `json:"contract,omitempty"`
	Source   string `json:"source"`
	Error    string `json:"error,omitempty"`
	Active   bool   `json:"active"`
}

func describeNetwork(ctx context.Context, r *network.Resolver, n network.Network, active string) networkView {
	v := networkView{
		Name:    n.Name,
		ChainID: n.ChainID,
		RPC:     config.SanitizeURL(n.RPC),
		Source:  "config",
		Active:  n.Name == active,
	}
	if n.ContractAddress == "" {
		v.Source = n.DeploymentFile
	}
	addr, err := r.Resolve(ctx, n.ChainID)
	if err != nil {
		v.Error = output.Describe(err).Message
		return v
	}
	v.Contract = addr.Hex()
	return v
}

func runNetworkList(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	networks := cc.Resolver.List()
	views := make([]networkView, 0, len(networks))
	for _, n := range networks {
		views = append(views, describeNetwork(ctx, cc.Resolver, n, cc.Config.ActiveNetwork()))
	}

	return cc.Fmt.Emit(views, func(w io.Writer) error {
		t := output.NewTable("NAME", "CHAIN ID", "RPC", "CONTRACT", "")
		for _, v := range views {
			contract := v.Contract
			if contract == "" {
				contract = "(not deployed)"
			}
			mark := ""
			if v.Active {
				mark = "(active)"
			}
			t.AddRow(v.Name, strconv.FormatInt(v.ChainID, 10), v.RPC, contract, mark)
		}
		return t.Render(w)
	})
}

// networkNames completes network names.
func networkNames(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{config.NetworkHolesky, config.NetworkLocalhost}, cobra.ShellCompDirectiveNoFileComp
}
