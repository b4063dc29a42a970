// Package pricing turns token usage into money. Prices are USD per
// million tokens for each token class.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"line-chat-ai/internal/session"
)

var million = decimal.NewFromInt(1_000_000)

type Table struct {
	Input       decimal.Decimal
	CachedInput decimal.Decimal
	Output      decimal.Decimal
}

type Cost struct {
	Input       decimal.Decimal
	CachedInput decimal.Decimal
	Output      decimal.Decimal
	Total       decimal.Decimal
}

func mustTable(input, cached, output string) Table {
	return Table{
		Input:       decimal.RequireFromString(input),
		CachedInput: decimal.RequireFromString(cached),
		Output:      decimal.RequireFromString(output),
	}
}

// DefaultModel is used for models missing from Tables.
const DefaultModel = "gpt-4o"

var Tables = map[string]Table{
	"gpt-4o":       mustTable("2.50", "1.25", "10.00"),
	"gpt-4o-mini":  mustTable("0.15", "0.075", "0.60"),
	"gpt-4.1":      mustTable("2.00", "0.50", "8.00"),
	"gpt-4.1-mini": mustTable("0.40", "0.10", "1.60"),
	"gpt-4.1-nano": mustTable("0.10", "0.025", "0.40"),
}

// ForModel looks a table up by model name, ignoring a provider prefix
// such as "openai/".
func ForModel(model string) Table {
	name := strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if t, ok := Tables[name]; ok {
		return t
	}
	return Tables[DefaultModel]
}

// Calculate is pure: equal inputs always give equal costs.
func Calculate(u session.Usage, t Table) Cost {
	c := Cost{
		Input:       perMillion(u.InputTokens, t.Input),
		CachedInput: perMillion(u.CachedInputTokens, t.CachedInput),
		Output:      perMillion(u.OutputTokens, t.Output),
	}
	c.Total = c.Input.Add(c.CachedInput).Add(c.Output)
	return c
}

func perMillion(tokens int64, price decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(tokens).Mul(price).Div(million)
}

// InJPY converts a USD amount with the given rate.
func InJPY(usd decimal.Decimal, rate float64) decimal.Decimal {
	return usd.Mul(decimal.NewFromFloat(rate))
}
