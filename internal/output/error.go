package output

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// ErrorOutput is the JSON envelope of a failed command.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes the failure.
type ErrorDetail struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// Describe extracts what is shown to the user for err. When err wraps a
// ChatError without being one (a failed chat action), the wrapper's own
// message wins over the ChatError's.
func Describe(err error) ErrorDetail {
	var ce *chaterr.ChatError
	if !errors.As(err, &ce) {
		return ErrorDetail{
			Code:     chaterr.ErrGeneral.Code,
			Message:  err.Error(),
			ExitCode: chaterr.ExitGeneral,
		}
	}

	msg := ce.Message
	if _, direct := err.(*chaterr.ChatError); !direct { //nolint:errorlint // only the outermost value matters here
		msg = err.Error()
	}
	return ErrorDetail{
		Code:       ce.Code,
		Message:    msg,
		Details:    ce.Details,
		Suggestion: ce.Suggestion,
		ExitCode:   ce.ExitCode,
	}
}

// FormatError writes err in format. A nil error writes nothing.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}
	d := Describe(err)
	if format == FormatJSON {
		return writeJSON(w, ErrorOutput{Error: d})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", d.Message)
	if len(d.Details) > 0 {
		sb.WriteString("\nDetails:\n")
		keys := make([]string, 0, len(d.Details))
		for k := range d.Details {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, d.Details[k])
		}
	}
	if d.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", d.Suggestion)
	}
	_, werr := io.WriteString(w, sb.String())
	return werr
}

// FormatSuccess writes a one-line confirmation.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
