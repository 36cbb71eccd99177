package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvHome            = "CHATBUDDY_HOME"
	EnvNetwork         = "CHATBUDDY_NETWORK"
	EnvHoleskyRPC      = "CHATBUDDY_HOLESKY_RPC"
	EnvHoleskyRPCAlt   = "HOLESKY_RPC_URL"
	EnvLocalRPC        = "CHATBUDDY_LOCAL_RPC"
	EnvContractAddress = "CHATBUDDY_CONTRACT_ADDRESS"
	EnvPrivateKey      = "CHATBUDDY_PRIVATE_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvPrivateKeyAlt   = "PRIVATE_KEY"           // #nosec G101 -- false positive, this is a const name not a credential
	EnvKeySource       = "CHATBUDDY_KEY_SOURCE"
	EnvOutputFormat    = "CHATBUDDY_OUTPUT_FORMAT"
	EnvVerbose         = "CHATBUDDY_VERBOSE"
	EnvLogLevel        = "CHATBUDDY_LOG_LEVEL"
	EnvFinalizeTimeout = "CHATBUDDY_FINALIZE_TIMEOUT"
	EnvNoColor         = "NO_COLOR"
)

var (
	// ErrInvalidRPCURL indicates the RPC URL could not be parsed or uses an unknown scheme.
	ErrInvalidRPCURL = errors.New("invalid RPC URL")

	// ErrInsecureRPCURL indicates plain http/ws to a non-loopback host.
	ErrInsecureRPCURL = errors.New("insecure RPC URL: use https or wss for remote hosts")
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network = strings.ToLower(strings.TrimSpace(v))
	}

	if v := firstEnv(EnvHoleskyRPC, EnvHoleskyRPCAlt); v != "" {
		cfg.Networks.Holesky.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvLocalRPC); v != "" {
		cfg.Networks.Localhost.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvContractAddress); v != "" {
		cfg.Networks.Holesky.ContractAddress = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvKeySource); v != "" {
		cfg.Wallet.KeySource = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvFinalizeTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Tx.FinalizeTimeoutSeconds = secs
		}
	}

	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// PrivateKeyFromEnv returns the hex private key set in the environment, if any.
func PrivateKeyFromEnv() string {
	return strings.TrimSpace(firstEnv(EnvPrivateKey, EnvPrivateKeyAlt))
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims whitespace and surrounding quotes and drops control and
// space characters from a copy-pasted URL.
func SanitizeURL(raw string) string {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// LoadDotEnv loads KEY=value pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing files
// are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ValidateRPCURL checks that an RPC URL uses a supported scheme. Plain http and ws
// are only accepted for loopback hosts, which is where a hardhat node runs.
// An empty URL is valid and means "use the default".
func ValidateRPCURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRPCURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host", ErrInvalidRPCURL)
		}
		return nil
	case "http", "ws":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return ErrInsecureRPCURL
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRPCURL, u.Scheme)
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
