package swap

import (
	"fmt"
	"math/big"
	"strings"
)

const MaxDecimals = 18

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// SafeAmountToWei converts a human-readable decimal amount to base units.
// Digits beyond decimals are truncated.
func SafeAmountToWei(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	amount = strings.TrimSpace(amount)
	parts := strings.Split(amount, ".")
	if amount == "" || len(parts) > 2 || strings.HasPrefix(amount, "-") {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}

	integerPart := parts[0]
	if integerPart == "" {
		integerPart = "0"
	}
	decimalPart := ""
	if len(parts) == 2 {
		decimalPart = parts[1]
	}

	if len(decimalPart) > decimals {
		decimalPart = decimalPart[:decimals]
	} else {
		decimalPart += strings.Repeat("0", decimals-len(decimalPart))
	}

	result, ok := new(big.Int).SetString(integerPart+decimalPart, 10)
	if !ok {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}
	if result.Cmp(maxUint256) > 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount too large for uint256: %s", result.String())}
	}
	if result.Sign() <= 0 {
		return nil, &InvalidParamError{Message: "calculated amount is zero"}
	}
	return result, nil
}

// ParseUint256 parses a decimal or 0x-prefixed hex integer in uint256 range
func ParseUint256(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	var (
		v  *big.Int
		ok bool
	)
	if hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"); hex != s {
		v, ok = new(big.Int).SetString(hex, 16)
	} else {
		v, ok = new(big.Int).SetString(s, 10)
	}
	if !ok || !inUint256Range(v) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("not a uint256: %q", s)}
	}
	return v, nil
}

func inUint256Range(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(maxUint256) <= 0
}

type uint256Field struct {
	name  string
	value *big.Int
}

// checkUint256 rejects values the signed encoding would reduce modulo 2^256.
// Nil values are left to the caller.
func checkUint256(fields ...uint256Field) error {
	for _, f := range fields {
		if f.value != nil && !inUint256Range(f.value) {
			return &InvalidParamError{Message: fmt.Sprintf("%s is outside the uint256 range: %s", f.name, f.value)}
		}
	}
	return nil
}

// ParseUint256List parses a comma separated list of identifiers
func ParseUint256List(s string) ([]*big.Int, error) {
	var ids []*big.Int
	for _, field := range strings.Split(s, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		id, err := ParseUint256(field)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, &InvalidParamError{Message: "ids list cannot be empty"}
	}
	return ids, nil
}
