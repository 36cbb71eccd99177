// Package contract binds the ChatApp smart contract: profile lookup, friend
// lists, messages and the three mutating calls, each with a two-stage
// submit/finalize result.
package contract

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Contract method names.
const (
	MethodCheckUserExist  = "checkUserExist"
	MethodCreateAccount   = "createAccount"
	MethodGetUsername     = "getUsername"
	MethodAddFriend       = "addFriend"
	MethodGetMyFriendList = "getMyFriendList"
	MethodSendMessage     = "sendMessage"
	MethodReadMessages    = "readMessages"
	MethodGetAllAppUser   = "getAllAppUser"
)

//go:embed chatapp.abi.json
var chatAppABIJSON string

// ChatAppMetaData carries the ChatApp ABI.
//
//nolint:gochecknoglobals // Parsed lazily by bind.MetaData, shared by every binding
var ChatAppMetaData = &bind.MetaData{ABI: chatAppABIJSON}

//nolint:gochecknoglobals // Parse result cached for the process lifetime
var (
	parsedOnce sync.Once
	parsedABI  *abi.ABI
	parseErr   error
)

// ABI returns the parsed ChatApp ABI.
func ABI() (*abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedABI, parseErr = ChatAppMetaData.GetAbi()
		if parseErr == nil && parsedABI == nil {
			parseErr = fmt.Errorf("chat app ABI is empty")
		}
	})
	return parsedABI, parseErr
}
