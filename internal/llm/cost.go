package llm

// pricePerMillion holds USD prices per one million tokens: [input, output].
var pricePerMillion = map[string][2]float64{
	"gpt-4o":                   {2.50, 10.00},
	"gpt-4o-mini":              {0.15, 0.60},
	"gpt-4.1":                  {2.00, 8.00},
	"gpt-4.1-mini":             {0.40, 1.60},
	"claude-sonnet-4-20250514": {3.00, 15.00},
	"claude-3-5-haiku-latest":  {0.80, 4.00},
}

// CalculateCost estimates the USD cost of a call. Unknown models cost 0.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	prices, ok := pricePerMillion[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*prices[0] + float64(outputTokens)/1e6*prices[1]
}
