package session

import (
	"errors"

	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// User-facing messages stored in State.Error.
const (
	msgConnectFailed     = "Something went wrong while loading data. Please try again."
	msgCreateFirst       = "Please create your account first."
	msgCreateBeforeChat  = "Please create your account first before using chat features."
	msgCreateEmpty       = "Name and account address cannot be empty."
	msgCreateMismatch    = "Account address must match the connected wallet."
	msgUserExists        = "User already exists. Try logging in."
	msgCreateFailed      = "Error creating your account. Please try again."
	msgFriendEmpty       = "Provide valid name and account address."
	msgFriendNoAccount   = "This user has not created an account yet."
	msgAddFriendFailed   = "Failed to add friend. Please try again."
	msgMessageEmpty      = "Please type your message before sending."
	msgRecipientMissing  = "This friend has not created an account yet."
	msgSendFailed        = "Unable to send message. Please check if you're friends first."
	msgReadFailed        = "No messages or not connected to a friend."
	msgSelectUser        = "Please select a user."
	msgUserMissing       = "Selected user does not exist."
	msgReadUserFailed    = "Unable to fetch user data."
	msgUsersFailed       = "Unable to load users. Please try again."
	msgFriendsFailed     = "Unable to load your friends. Please try again."
	msgInvalidAddress    = "Account address is not a valid address."
	msgSwitchFailed      = "Unable to switch network. Please switch your wallet manually."
	msgWalletUnavailable = "Please connect your wallet first."
	msgWalletLocked      = "Your wallet is locked. Unlock it and try again."
	msgWrongNetwork      = "Please switch your wallet to Localhost (31337) or Holesky (17000)."
	msgNotDeployed       = "Contract not deployed on this network."
	msgNetworkDown       = "Unable to reach the network. Check your RPC endpoint and try again."
)

// kindMessages replace an action's generic message when the failure has a
// more actionable cause. Order matters: a switch failure wraps the
// unsupported-network error.
//
//nolint:gochecknoglobals // lookup table
var kindMessages = []struct {
	kind error
	msg  string
}{
	{chaterr.ErrWalletUnavailable, msgWalletUnavailable},
	{chaterr.ErrWalletLocked, msgWalletLocked},
	{chaterr.ErrDecryptionFailed, msgWalletLocked},
	{chaterr.ErrNetworkSwitch, msgSwitchFailed},
	{chaterr.ErrUnsupportedNetwork, msgWrongNetwork},
	{chaterr.ErrContractNotDeployed, msgNotDeployed},
	{chaterr.ErrNetworkError, msgNetworkDown},
}

// reject builds a domain error that carries its own user-facing message.
func reject(kind *chaterr.ChatError, msg string) error {
	return &chaterr.ChatError{
		Code:       kind.Code,
		Message:    msg,
		Suggestion: kind.Suggestion,
		ExitCode:   kind.ExitCode,
	}
}

// userMessage picks the message stored in State.Error for err.
func userMessage(err error, fallback string) string {
	var ce *chaterr.ChatError
	if errors.As(err, &ce) {
		switch ce.Code {
		case chaterr.ErrValidation.Code, chaterr.ErrAccountNotFound.Code, chaterr.ErrAccountExists.Code:
			return ce.Message
		}
	}
	for _, k := range kindMessages {
		if errors.Is(err, k.kind) {
			return k.msg
		}
	}
	return fallback
}

// ActionError is returned by a failed action. Its message is the one stored
// in State.Error; Unwrap exposes the cause.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ActionError) Unwrap() error {
	return e.Err
}
