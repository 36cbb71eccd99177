package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/chatbuddy/internal/contract"
)

// TimestampLayout renders message times as "time | date".
const TimestampLayout = "15:04:05 | 2006-01-02"

// FormatTimestamp renders t in the local zone. The zero time renders as "-".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(TimestampLayout)
}

// Transcript is a conversation as seen by one account.
type Transcript struct {
	Self       common.Address
	SelfName   string
	FriendName string
	Messages   []contract.Message
}

// senderName labels own messages with the caller's name ("You" without one)
// and everything else with the selected friend ("Friend" without one).
func (t Transcript) senderName(sender common.Address) string {
	if sender == t.Self {
		if t.SelfName != "" {
			return t.SelfName
		}
		return "You"
	}
	if t.FriendName != "" {
		return t.FriendName
	}
	return "Friend"
}

// Render writes one block per message in ledger order.
func (t Transcript) Render(w io.Writer) error {
	if len(t.Messages) == 0 {
		_, err := fmt.Fprintln(w, "(no messages)")
		return err
	}
	var sb strings.Builder
	for _, m := range t.Messages {
		fmt.Fprintf(&sb, "%s  Time: %s\n", t.senderName(m.Sender), FormatTimestamp(m.Timestamp))
		fmt.Fprintf(&sb, "  %s\n", m.Msg)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// FriendTable lists friends by name and address.
func FriendTable(friends []contract.Friend) *Table {
	t := NewTable("NAME", "ADDRESS")
	for _, f := range friends {
		t.AddRow(f.Name, f.Pubkey.Hex())
	}
	return t
}

// UserTable lists registered users, marking the caller.
func UserTable(users []contract.User, self common.Address) *Table {
	t := NewTable("NAME", "ADDRESS", "")
	for _, u := range users {
		mark := ""
		if u.AccountAddress == self {
			mark = "(you)"
		}
		t.AddRow(u.Name, u.AccountAddress.Hex(), mark)
	}
	return t
}
