package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/session"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// readTimeout bounds commands that only read from the contract.
const readTimeout = 60 * time.Second

// maxNameDistance is the largest edit distance offered as a friend suggestion.
const maxNameDistance = 3

// writeTimeout bounds commands that submit a transaction: the finalization
// wait plus the reads around it.
func writeTimeout(cc *CommandContext) time.Duration {
	return cc.Config.FinalizeTimeout() + readTimeout
}

// contextWithTimeout bounds the command's context by d. Commands run outside
// Execute have no context, so Background stands in.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}

// connectChat connects the wallet and loads the caller's profile. With
// allowUnregistered, a connected account without a profile is not an error.
func connectChat(ctx context.Context, cc *CommandContext, allowUnregistered bool) (*session.Session, error) {
	chat := cc.Chat()
	err := chat.ConnectWallet(ctx)
	if err != nil && allowUnregistered && errors.Is(err, chaterr.ErrAccountNotFound) && chat.Snapshot().Connected() {
		return chat, nil
	}
	return chat, err
}

// resolvePeer turns a friend name or an address into an address. The
// returned name is the friend entry's name, empty for unknown addresses.
func resolvePeer(st session.State, arg string) (common.Address, string, error) {
	arg = strings.TrimSpace(arg)
	if common.IsHexAddress(arg) {
		addr := common.HexToAddress(arg)
		name, _ := st.FriendName(addr)
		return addr, name, nil
	}
	if f, ok := st.FriendByName(arg); ok {
		return f.Pubkey, f.Name, nil
	}

	err := chaterr.WithDetails(chaterr.ErrNotFound, map[string]string{"friend": arg})
	if best := closestFriend(st.FriendLists, arg); best != "" {
		return common.Address{}, "", chaterr.WithSuggestion(err, fmt.Sprintf("did you mean '%s'?", best))
	}
	return common.Address{}, "", chaterr.WithSuggestion(err,
		"use a friend's name from 'chatbuddy friend list' or a 0x address")
}

// closestFriend returns the friend name nearest to query within
// maxNameDistance, or "".
func closestFriend(friends []contract.Friend, query string) string {
	query = strings.ToLower(query)
	best, bestDist := "", math.MaxInt
	for _, f := range friends {
		d := levenshtein.ComputeDistance(query, strings.ToLower(f.Name))
		if d < bestDist {
			best, bestDist = f.Name, d
		}
	}
	if bestDist <= maxNameDistance {
		return best
	}
	return ""
}

// filterFriends keeps friends whose name contains query, ignoring case, or is
// within maxNameDistance of it. Order is preserved.
func filterFriends(friends []contract.Friend, query string) []contract.Friend {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return friends
	}
	matched := make([]contract.Friend, 0, len(friends))
	for _, f := range friends {
		name := strings.ToLower(f.Name)
		if strings.Contains(name, query) || levenshtein.ComputeDistance(query, name) <= maxNameDistance {
			matched = append(matched, f)
		}
	}
	return matched
}
