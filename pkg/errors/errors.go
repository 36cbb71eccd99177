// Package errors provides structured error handling for chatbuddy.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitWallet     = 3 // Wallet unavailable or locked
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Busy session or permission denied
)

// ChatError is the structured error type for chatbuddy.
type ChatError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *ChatError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ChatError. Two ChatErrors match when their codes match.
func (e *ChatError) Is(target error) bool {
	var t *ChatError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &ChatError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &ChatError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &ChatError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrInvalidAddress = &ChatError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	// Wallet errors.
	ErrWalletUnavailable = &ChatError{
		Code:       "WALLET_UNAVAILABLE",
		Message:    "no wallet is available",
		Suggestion: "import a key with 'chatbuddy wallet import' or set CHATBUDDY_PRIVATE_KEY",
		ExitCode:   ExitWallet,
	}

	ErrWalletLocked = &ChatError{
		Code:     "WALLET_LOCKED",
		Message:  "wallet is locked",
		ExitCode: ExitWallet,
	}

	ErrWalletExists = &ChatError{
		Code:     "WALLET_EXISTS",
		Message:  "a wallet key is already stored",
		ExitCode: ExitInput,
	}

	ErrInvalidMnemonic = &ChatError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrInvalidKey = &ChatError{
		Code:     "INVALID_KEY",
		Message:  "invalid private key",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &ChatError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitWallet,
	}

	// Network errors.
	ErrUnsupportedNetwork = &ChatError{
		Code:       "UNSUPPORTED_NETWORK",
		Message:    "unsupported network",
		Suggestion: "Please switch your wallet to Localhost (31337) or Holesky (17000)",
		ExitCode:   ExitInput,
	}

	ErrNetworkSwitch = &ChatError{
		Code:     "NETWORK_SWITCH_FAILED",
		Message:  "could not switch the wallet network",
		ExitCode: ExitGeneral,
	}

	ErrNetworkError = &ChatError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	// Contract errors.
	ErrContractNotDeployed = &ChatError{
		Code:     "CONTRACT_NOT_DEPLOYED",
		Message:  "contract not deployed on this network",
		ExitCode: ExitNotFound,
	}

	ErrContractCallFailed = &ChatError{
		Code:     "CONTRACT_CALL_FAILED",
		Message:  "contract call failed",
		ExitCode: ExitGeneral,
	}

	ErrTransactionFailed = &ChatError{
		Code:     "TRANSACTION_FAILED",
		Message:  "transaction failed",
		ExitCode: ExitGeneral,
	}

	ErrReadOnlyBinding = &ChatError{
		Code:     "READ_ONLY_BINDING",
		Message:  "contract is bound read-only",
		ExitCode: ExitGeneral,
	}

	// Session errors.
	ErrValidation = &ChatError{
		Code:     "VALIDATION_ERROR",
		Message:  "required field is empty",
		ExitCode: ExitInput,
	}

	ErrAccountNotFound = &ChatError{
		Code:     "ACCOUNT_NOT_FOUND",
		Message:  "account has no on-chain profile",
		ExitCode: ExitNotFound,
	}

	ErrAccountExists = &ChatError{
		Code:     "ACCOUNT_EXISTS",
		Message:  "account already exists",
		ExitCode: ExitInput,
	}

	ErrSessionBusy = &ChatError{
		Code:     "SESSION_BUSY",
		Message:  "another action is in progress",
		ExitCode: ExitPermission,
	}

	// Config errors.
	ErrConfigNotFound = &ChatError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &ChatError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new ChatError with the given code and message.
func New(code, message string) *ChatError {
	return &ChatError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ce *ChatError
	if errors.As(err, &ce) {
		return &ChatError{
			Code:       ce.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ce.Message),
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &ChatError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause returns a copy of the sentinel carrying cause as its underlying error.
// The result still matches the sentinel with errors.Is.
func WithCause(sentinel *ChatError, cause error) error {
	return &ChatError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ce *ChatError
	if errors.As(err, &ce) {
		return &ChatError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    details,
			Suggestion: ce.Suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &ChatError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ce *ChatError
	if errors.As(err, &ce) {
		return &ChatError{
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &ChatError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "GENERAL_ERROR"
}

// Suggestion returns the suggestion attached to an error, if any.
func Suggestion(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Suggestion
	}
	return ""
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
