package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// minPasswordLen is the shortest accepted key file password.
const minPasswordLen = 8

// Prompt seams. Tests replace them to avoid a terminal.
//
//nolint:gochecknoglobals // Replaced in tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirmation
	promptSecretFn      = promptPassword
	stdinReader         io.Reader = os.Stdin
	readPasswordFn                = func() ([]byte, error) { return term.ReadPassword(syscall.Stdin) }
)

// promptPassword prompts for a password with hidden input.
func promptPassword(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)

	password, err := readPasswordFn()
	outln(os.Stderr) // newline after hidden input

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

// promptNewPassword prompts for a new key file password with confirmation.
func promptNewPassword() (string, error) {
	password, err := promptPasswordFn("Enter encryption password: ")
	if err != nil {
		return "", err
	}

	if len(password) < minPasswordLen {
		return "", chaterr.WithSuggestion(
			chaterr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen),
		)
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", chaterr.WithSuggestion(chaterr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptConfirmation asks a yes/no question on stderr. Anything but y or yes is no.
func promptConfirmation(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)
	answer, err := readLine(stdinReader)
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// readLine reads one trimmed line.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
