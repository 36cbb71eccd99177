package config

// Network names.
const (
	NetworkHolesky   = "holesky"
	NetworkLocalhost = "localhost"
)

// Well-known chain ids and the public Holesky deployment.
const (
	HoleskyChainID   int64 = 17000
	LocalhostChainID int64 = 31337

	DefaultHoleskyRPCURL   = "https://ethereum-holesky-rpc.publicnode.com"
	DefaultLocalhostRPCURL = "http://127.0.0.1:8545"

	DefaultHoleskyContract   = "0x15696678D8ca6668aF096C871C8d0FC4c816037a"
	DefaultLocalhostArtifact = "deployments/localhost/ChatApp.json"

	DefaultFinalizeTimeoutSeconds = 120

	// Relative paths are resolved against the home directory.
	DefaultKeyFile = "wallet.key.age"
	DefaultLogFile = "chatbuddy.log"
)

// Key source names.
const (
	KeySourceAuto    = "auto"
	KeySourceEnv     = "env"
	KeySourceKeyring = "keyring"
	KeySourceFile    = "file"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.chatbuddy",
		Network: NetworkHolesky,
		Networks: NetworksConfig{
			Holesky: NetworkConfig{
				RPC:             DefaultHoleskyRPCURL,
				ChainID:         HoleskyChainID,
				ContractAddress: DefaultHoleskyContract,
			},
			Localhost: NetworkConfig{
				RPC:            DefaultLocalhostRPCURL,
				ChainID:        LocalhostChainID,
				DeploymentFile: DefaultLocalhostArtifact,
			},
		},
		Wallet: WalletConfig{
			KeySource:   KeySourceAuto,
			KeyFile:     DefaultKeyFile,
			KeyringUser: "default",
			MemoryLock:  true,
		},
		Tx: TxConfig{
			FinalizeTimeoutSeconds: DefaultFinalizeTimeoutSeconds,
		},
		RPC: RPCConfig{
			RatePerSecond: 10,
			Burst:         10,
			MaxAttempts:   3,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  DefaultLogFile,
		},
	}
}
