// Package vaultid parses and formats vault identifiers.
//
// An indexed vault is keyed by its controller, the borrowing account and the
// collateral collection: {controller}-{account}-{collateral}, each a 0x-prefixed
// 20-byte hex address, lower-case.
package vaultid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// idRegex matches: 0x{40 hex}-0x{40 hex}-0x{40 hex}
// Example: 0x3b29c19ff2fcea0ff98d0ef5b184354d74ea74b0-0xe89cb2053a04daf86abaa1f4bc6d50744e57d39e-0xb7f7f6c52f2e2fdb1963eab30438024864c313f6
var idRegex = regexp.MustCompile(
	`^(0x[0-9a-fA-F]{40})-(0x[0-9a-fA-F]{40})-(0x[0-9a-fA-F]{40})$`,
)

var ErrInvalidID = errors.New("vaultid: invalid vault id")

// ID identifies one vault.
type ID struct {
	Controller common.Address `json:"controller"`
	Account    common.Address `json:"account"`
	Collateral common.Address `json:"collateral"`
}

// Parse parses and validates a vault id. Mixed-case input is accepted.
func Parse(s string) (ID, error) {
	m := idRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ID{}, fmt.Errorf("%w: %s (expected {controller}-{account}-{collateral})", ErrInvalidID, s)
	}
	for _, addr := range m[1:] {
		if !common.IsHexAddress(addr) {
			return ID{}, fmt.Errorf("%w: bad address %s", ErrInvalidID, addr)
		}
	}
	return ID{
		Controller: common.HexToAddress(m[1]),
		Account:    common.HexToAddress(m[2]),
		Collateral: common.HexToAddress(m[3]),
	}, nil
}

// New builds an ID from its parts.
func New(controller, account, collateral common.Address) ID {
	return ID{Controller: controller, Account: account, Collateral: collateral}
}

// String renders the canonical lower-case form.
func (id ID) String() string {
	return lower(id.Controller) + "-" + lower(id.Account) + "-" + lower(id.Collateral)
}

// Canonical parses s and re-renders it, normalizing case.
func Canonical(s string) (string, error) {
	id, err := Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func lower(a common.Address) string {
	return strings.ToLower(a.Hex())
}
