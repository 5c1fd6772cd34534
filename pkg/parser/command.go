package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TipCommand is a parsed tip instruction.
type TipCommand struct {
	AmountUSD string
	Identity  string
}

var tipPattern = regexp.MustCompile(`(?i)^(?:tip\s+)?\$?(\d+\.?\d*)\s+to\s+(\S+)$`)

// ParseTipCommand parses a natural language tip command.
// Examples:
//   - "25 to vitalik.eth"
//   - "tip $15 to builder.base.eth"
//   - "5.50 to 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
func ParseTipCommand(command string) (*TipCommand, error) {
	command = strings.TrimSpace(command)

	matches := tipPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid tip command format. Expected: '<usd-amount> to <identity>' (e.g., '25 to vitalik.eth')")
	}

	return &TipCommand{
		AmountUSD: matches[1],
		Identity:  matches[2],
	}, nil
}

// ValidateTipCommand validates that a tip command has usable fields.
func ValidateTipCommand(cmd *TipCommand) error {
	if cmd.Identity == "" {
		return fmt.Errorf("recipient identity is required")
	}
	target, err := decimal.NewFromString(cmd.AmountUSD)
	if err != nil {
		return fmt.Errorf("invalid tip amount %q", cmd.AmountUSD)
	}
	if target.Sign() <= 0 {
		return fmt.Errorf("tip amount must be positive")
	}
	return nil
}
