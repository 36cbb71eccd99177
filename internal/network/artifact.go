package network

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Deployment is the subset of a hardhat-deploy artifact chatbuddy reads.
type Deployment struct {
	Address         common.Address
	TransactionHash common.Hash
	ABI             json.RawMessage
}

type deploymentFile struct {
	Address         string          `json:"address"`
	TransactionHash string          `json:"transactionHash"`
	ABI             json.RawMessage `json:"abi"`
}

// LoadDeployment reads a hardhat-deploy artifact such as deployments/localhost/ChatApp.json.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: artifact path comes from config
	if err != nil {
		return nil, err
	}

	var raw deploymentFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing deployment artifact: %w", err)
	}
	if !common.IsHexAddress(raw.Address) {
		return nil, fmt.Errorf("%w: %q", errBadArtifactAddress, raw.Address)
	}

	d := &Deployment{
		Address: common.HexToAddress(raw.Address),
		ABI:     raw.ABI,
	}
	if raw.TransactionHash != "" {
		d.TransactionHash = common.HexToHash(raw.TransactionHash)
	}
	return d, nil
}
