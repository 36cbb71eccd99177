// Package network maps the chain a wallet is connected to onto the ChatApp
// contract deployed there. Only Holesky and a local hardhat node are supported.
package network

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/chatbuddy/internal/config"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

var errBadArtifactAddress = errors.New("deployment artifact has no valid address")

// Network is one supported chain.
type Network struct {
	Name    string `json:"name"`
	ChainID int64  `json:"chain_id"`
	RPC     string `json:"rpc"`

	// Static contract address. Empty when the address comes from DeploymentFile.
	ContractAddress string `json:"contract_address,omitempty"`
	DeploymentFile  string `json:"deployment_file,omitempty"`
}

// Resolver resolves chain ids to contract addresses.
type Resolver struct {
	networks []Network
	baseDir  string
}

// NewResolver builds the registry from configuration. Relative deployment file
// paths are resolved against baseDir (the working directory when empty).
func NewResolver(cfg *config.Config, baseDir string) *Resolver {
	return &Resolver{
		networks: []Network{
			fromConfig(config.NetworkHolesky, cfg.Networks.Holesky),
			fromConfig(config.NetworkLocalhost, cfg.Networks.Localhost),
		},
		baseDir: baseDir,
	}
}

func fromConfig(name string, nc config.NetworkConfig) Network {
	return Network{
		Name:            name,
		ChainID:         nc.ChainID,
		RPC:             nc.RPC,
		ContractAddress: nc.ContractAddress,
		DeploymentFile:  nc.DeploymentFile,
	}
}

// List returns the supported networks in registry order.
func (r *Resolver) List() []Network {
	out := make([]Network, len(r.networks))
	copy(out, r.networks)
	return out
}

// ByName finds a network by its case-insensitive name.
func (r *Resolver) ByName(name string) (Network, bool) {
	for _, n := range r.networks {
		if strings.EqualFold(n.Name, name) {
			return n, true
		}
	}
	return Network{}, false
}

// ByChainID finds a network by chain id.
func (r *Resolver) ByChainID(chainID int64) (Network, bool) {
	for _, n := range r.networks {
		if n.ChainID == chainID {
			return n, true
		}
	}
	return Network{}, false
}

// Check is the pre-flight step run before any contract work: it fails with
// ErrUnsupportedNetwork for any chain other than the two supported ones.
func (r *Resolver) Check(chainID int64) (Network, error) {
	n, ok := r.ByChainID(chainID)
	if !ok {
		return Network{}, chaterr.WithDetails(chaterr.ErrUnsupportedNetwork, map[string]string{
			"chain_id": strconv.FormatInt(chainID, 10),
		})
	}
	return n, nil
}

// Resolve returns the ChatApp address for chainID. Deployment artifacts are
// read on every call so a redeploy on the local node is picked up without a restart.
func (r *Resolver) Resolve(ctx context.Context, chainID int64) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}

	n, err := r.Check(chainID)
	if err != nil {
		return common.Address{}, err
	}

	if n.ContractAddress != "" {
		if !common.IsHexAddress(n.ContractAddress) {
			return common.Address{}, chaterr.WithDetails(chaterr.ErrConfigInvalid, map[string]string{
				"network":          n.Name,
				"contract_address": n.ContractAddress,
			})
		}
		return common.HexToAddress(n.ContractAddress), nil
	}

	if n.DeploymentFile == "" {
		return common.Address{}, chaterr.WithDetails(chaterr.ErrContractNotDeployed, map[string]string{
			"network": n.Name,
		})
	}

	d, err := LoadDeployment(r.artifactPath(n.DeploymentFile))
	if err != nil {
		return common.Address{}, chaterr.WithDetails(chaterr.WithCause(chaterr.ErrContractNotDeployed, err), map[string]string{
			"network": n.Name,
		})
	}
	return d.Address, nil
}

func (r *Resolver) artifactPath(p string) string {
	p = config.ExpandHome(p)
	if filepath.IsAbs(p) || r.baseDir == "" {
		return p
	}
	return filepath.Join(r.baseDir, p)
}
