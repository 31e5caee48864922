package ledger

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/compound/internal/fault"
)

// AccountID identifies a participant. Construct it with ParseAccount so that
// visually identical identities compare equal.
type AccountID string

// ParseAccount trims s and normalizes it to Unicode NFC.
func ParseAccount(s string) (AccountID, error) {
	id := norm.NFC.String(strings.TrimSpace(s))
	if id == "" {
		return "", fault.New(fault.CodeInvalidInput, "account identity is empty")
	}
	return AccountID(id), nil
}

func (a AccountID) String() string {
	return string(a)
}
