package llm

import "strings"

// price is a per-token price in USD.
type price struct {
	prompt     float64
	completion float64
}

func (p price) cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.prompt + float64(outputTokens)*p.completion
}

// lookupPrice finds a price by exact model id, then by the longest known
// prefix so that dated model versions match their family.
func lookupPrice(table map[string]price, modelID string, fallback price) price {
	if p, ok := table[modelID]; ok {
		return p
	}
	best := ""
	for id := range table {
		if strings.HasPrefix(modelID, id) && len(id) > len(best) {
			best = id
		}
	}
	if best != "" {
		return table[best]
	}
	return fallback
}

var geminiPricing = map[string]price{
	"gemini-2.5-pro":        {1.25 / 1_000_000, 10.0 / 1_000_000},
	"gemini-2.5-flash":      {0.30 / 1_000_000, 2.50 / 1_000_000},
	"gemini-2.5-flash-lite": {0.10 / 1_000_000, 0.40 / 1_000_000},
	"gemini-2.0-flash":      {0.10 / 1_000_000, 0.40 / 1_000_000},
	"gemini-1.5-pro":        {1.25 / 1_000_000, 5.0 / 1_000_000},
	"gemini-1.5-flash":      {0.075 / 1_000_000, 0.30 / 1_000_000},
}

var openaiPricing = map[string]price{
	"gpt-4o":        {2.50 / 1_000_000, 10.0 / 1_000_000},
	"gpt-4o-mini":   {0.15 / 1_000_000, 0.60 / 1_000_000},
	"gpt-4.1":       {2.0 / 1_000_000, 8.0 / 1_000_000},
	"gpt-4.1-mini":  {0.40 / 1_000_000, 1.60 / 1_000_000},
	"gpt-4-turbo":   {10.0 / 1_000_000, 30.0 / 1_000_000},
	"gpt-3.5-turbo": {0.50 / 1_000_000, 1.50 / 1_000_000},
	"o1":            {15.0 / 1_000_000, 60.0 / 1_000_000},
	"o1-mini":       {3.0 / 1_000_000, 12.0 / 1_000_000},
}

var anthropicPricing = map[string]price{
	"claude-opus-4":     {15.0 / 1_000_000, 75.0 / 1_000_000},
	"claude-sonnet-4":   {3.0 / 1_000_000, 15.0 / 1_000_000},
	"claude-3-5-sonnet": {3.0 / 1_000_000, 15.0 / 1_000_000},
	"claude-3-5-haiku":  {0.80 / 1_000_000, 4.0 / 1_000_000},
	"claude-3-haiku":    {0.25 / 1_000_000, 1.25 / 1_000_000},
}
