package wallet

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// MaxTypoDistance is the largest edit distance offered as a suggestion.
const MaxTypoDistance = 2

// BIP-44 path components for Ethereum accounts: m/44'/60'/0'/0/index.
const (
	purpose  = 44
	coinType = 60
)

//nolint:gochecknoglobals // compiled once
var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
)

// NormalizeMnemonic lowercases the phrase, strips numbered-list prefixes and
// commas, and collapses whitespace.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// DerivationPath returns the BIP-44 path for the account at index.
func DerivationPath(index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/0'/0/%d", purpose, coinType, index)
}

// KeyFromMnemonic derives the private key at m/44'/60'/0'/0/index.
func KeyFromMnemonic(mnemonic, passphrase string, index uint32, lock bool) (*SecureBytes, error) {
	normalized := NormalizeMnemonic(mnemonic)
	seed, err := bip39.NewSeedWithErrorChecking(normalized, passphrase)
	if err != nil {
		e := chaterr.WithCause(chaterr.ErrInvalidMnemonic, err)
		if hint := typoHint(normalized); hint != "" {
			e = chaterr.WithSuggestion(e, hint)
		}
		return nil, e
	}
	defer zero(seed)

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrInvalidKey, err)
	}
	for _, child := range []uint32{
		bip32.FirstHardenedChild + purpose,
		bip32.FirstHardenedChild + coinType,
		bip32.FirstHardenedChild,
		0,
		index,
	} {
		if key, err = key.NewChildKey(child); err != nil {
			return nil, chaterr.WithCause(chaterr.ErrInvalidKey, err)
		}
	}
	raw := common.LeftPadBytes(key.Key, privateKeyLen)
	defer zero(raw)
	defer zero(key.Key)

	return NewSecureBytes(raw, lock), nil
}

// SuggestWord returns the closest BIP-39 word within MaxTypoDistance, or "".
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	best, bestDist := "", math.MaxInt
	for _, w := range bip39.GetWordList() {
		d := levenshtein.ComputeDistance(input, w)
		if d == 0 {
			return w
		}
		if d < bestDist {
			best, bestDist = w, d
		}
	}
	if bestDist <= MaxTypoDistance {
		return best
	}
	return ""
}

// typoHint lists unknown words with their closest match.
func typoHint(normalized string) string {
	known := make(map[string]struct{}, 2048)
	for _, w := range bip39.GetWordList() {
		known[w] = struct{}{}
	}

	var hints []string
	for i, w := range strings.Fields(normalized) {
		if _, ok := known[w]; ok {
			continue
		}
		if s := SuggestWord(w); s != "" {
			hints = append(hints, fmt.Sprintf("word %d: '%s' - did you mean '%s'?", i+1, w, s))
		} else {
			hints = append(hints, fmt.Sprintf("word %d: '%s' is not a BIP-39 word", i+1, w))
		}
	}
	return strings.Join(hints, "; ")
}
