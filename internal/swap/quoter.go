// Package swap prices token swaps from a static cross-rate table.
//
// The table is an offline approximation used when the live DEX quote path is
// unavailable. Rates are authored per direction and are not required to be
// reciprocal.
package swap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"tpf-ecosystem/pkg/errors"
)

// MaxDecimals token amounts carry at most 18 fractional digits
const MaxDecimals = 18

// RateTable tokenIn -> tokenOut -> rate
type RateTable map[string]map[string]decimal.Decimal

type Quote struct {
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	Rate      string `json:"rate"`
}

// DefaultRateTable 内置的五种代币汇率
func DefaultRateTable() RateTable {
	raw := map[string]map[string]string{
		"WLD": {"TPF": "74500", "WDD": "61.5", "USDC": "0.94", "CASH": "12.7"},
		"TPF": {"WLD": "0.0000134", "WDD": "0.00083", "USDC": "0.0000126", "CASH": "0.00017"},
		"WDD": {"WLD": "0.0163", "TPF": "1210", "USDC": "0.0152", "CASH": "0.206"},
		"USDC": {"WLD": "1.06", "TPF": "79000", "WDD": "65.4", "CASH": "13.5"},
		"CASH": {"WLD": "0.0787", "TPF": "5860", "WDD": "4.85", "USDC": "0.074"},
	}
	table, err := ParseRateTable(raw)
	if err != nil {
		panic(err)
	}
	return table
}

// ParseRateTable 解析配置中的字符串汇率，代币符号统一转为大写
func ParseRateTable(raw map[string]map[string]string) (RateTable, error) {
	table := make(RateTable, len(raw))
	for in, row := range raw {
		in = normalize(in)
		if table[in] == nil {
			table[in] = make(map[string]decimal.Decimal, len(row))
		}
		for out, s := range row {
			rate, err := decimal.NewFromString(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("invalid rate %s->%s: %w", in, out, err)
			}
			if !rate.IsPositive() {
				return nil, fmt.Errorf("rate %s->%s must be positive", in, out)
			}
			table[in][normalize(out)] = rate
		}
	}
	return table, nil
}

// Rate 返回 tokenIn 到 tokenOut 的汇率，未定义的交易对按1处理
func (t RateTable) Rate(tokenIn, tokenOut string) decimal.Decimal {
	tokenIn, tokenOut = normalize(tokenIn), normalize(tokenOut)
	if tokenIn == tokenOut {
		return decimal.NewFromInt(1)
	}
	if row, ok := t[tokenIn]; ok {
		if rate, ok := row[tokenOut]; ok {
			return rate
		}
	}
	return decimal.NewFromInt(1)
}

// Quote 计算兑换数量；相同代币直接原样返回输入数量
func (t RateTable) Quote(tokenIn, tokenOut, amountIn string) (Quote, error) {
	tokenIn, tokenOut = normalize(tokenIn), normalize(tokenOut)
	amountIn = strings.TrimSpace(amountIn)

	if tokenIn == "" || tokenOut == "" {
		return Quote{}, errors.Validation("tokenIn and tokenOut are required")
	}

	amount, err := decimal.NewFromString(amountIn)
	if err != nil {
		return Quote{}, errors.New(errors.ErrValidation, "amountIn must be a decimal number", err)
	}
	if amount.IsNegative() {
		return Quote{}, errors.Validation("amountIn must not be negative")
	}
	if -amount.Exponent() > MaxDecimals {
		return Quote{}, errors.Validation(fmt.Sprintf("amountIn supports at most %d decimals", MaxDecimals))
	}

	if tokenIn == tokenOut {
		return Quote{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn, AmountOut: amountIn, Rate: "1"}, nil
	}

	rate := t.Rate(tokenIn, tokenOut)
	out := amount.Mul(rate).Truncate(MaxDecimals)

	return Quote{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: out.String(),
		Rate:      rate.String(),
	}, nil
}

// Tokens 返回表中出现过的全部代币，按字母排序
func (t RateTable) Tokens() []string {
	seen := make(map[string]bool)
	for in, row := range t {
		seen[in] = true
		for out := range row {
			seen[out] = true
		}
	}
	tokens := make([]string, 0, len(seen))
	for tok := range seen {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
