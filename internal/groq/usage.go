package groq

import "sync/atomic"

// Token prices in USD, per the openai/gpt-oss-120b price sheet.
const (
	tokenPriceIn  = 0.15 / 1_000_000
	tokenPriceOut = 0.75 / 1_000_000
)

// Usage accumulates token counts across concurrent completion calls. It is
// the only mutable state shared between workers, so updates are atomic.
type Usage struct {
	prompt     atomic.Int64
	completion atomic.Int64
}

// Add records one call's token consumption.
func (u *Usage) Add(prompt, completion int) {
	u.prompt.Add(int64(prompt))
	u.completion.Add(int64(completion))
}

// Totals returns the accumulated prompt and completion token counts.
func (u *Usage) Totals() (prompt, completion int64) {
	return u.prompt.Load(), u.completion.Load()
}

// Cost estimates the accumulated spend in USD.
func (u *Usage) Cost() float64 {
	return float64(u.prompt.Load())*tokenPriceIn + float64(u.completion.Load())*tokenPriceOut
}
