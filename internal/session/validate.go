package session

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// profileInput is the input of CreateAccount and AddFriend.
type profileInput struct {
	Name    string `validate:"required"`
	Address string `validate:"required,eth_addr"`
}

// messageInput is the input of SendMessage.
type messageInput struct {
	Msg     string `validate:"required"`
	Address string `validate:"required,eth_addr"`
}

// addressInput is the input of ReadMessage and ReadUser.
type addressInput struct {
	Address string `validate:"required,eth_addr"`
}

// check validates in and maps a missing field to emptyMsg and a malformed
// address to msgInvalidAddress.
func check(v *validator.Validate, in any, emptyMsg string) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return chaterr.WithCause(chaterr.ErrValidation, err)
	}
	for _, f := range fields {
		if f.Tag() == "required" {
			return reject(chaterr.ErrValidation, emptyMsg)
		}
	}
	return reject(chaterr.ErrValidation, msgInvalidAddress)
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

func toAddress(s string) common.Address {
	return common.HexToAddress(trim(s))
}
