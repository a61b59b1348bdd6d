package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	etherDecimals = 18
	gweiDecimals  = 9
)

// WeiToETH converts wei to an exact decimal ETH string without trailing zeros:
// 2450000000000000000 -> "2.45". nil is treated as zero.
func WeiToETH(wei *big.Int) string { return scale(wei, etherDecimals).String() }

// WeiToGwei converts wei to an exact decimal gwei string.
func WeiToGwei(wei *big.Int) string { return scale(wei, gweiDecimals).String() }

// FormatFixed renders an exact decimal string with exactly places digits after
// the point, rounding half away from zero. Display only.
func FormatFixed(value string, places int32) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	return d.StringFixed(places)
}

// FormatWei is FormatFixed applied to a raw wei string, for tables.
func FormatWei(raw string, places int32) string {
	wei, err := ParseWei(raw)
	if err != nil {
		return "0"
	}
	return scale(wei, etherDecimals).StringFixed(places)
}

// ParseWei parses a base-10 smallest-unit integer string.
func ParseWei(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", raw)
	}
	return v, nil
}

func scale(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}
