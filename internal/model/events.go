package model

// PoolCreatedEventData is the decoded PoolCreated payload.
type PoolCreatedEventData struct {
	Asset0  string `json:"asset0"`
	Asset1  string `json:"asset1"`
	Fee     uint32 `json:"fee"`
	Creator string `json:"creator"`
}

// LiquidityEventData is the decoded LiquidityMinted or LiquidityBurned
// payload. Liquidity is the change of the pool's total shares.
type LiquidityEventData struct {
	Owner     string `json:"owner"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// SwapEventData is the decoded Swap payload.
type SwapEventData struct {
	User         string `json:"user"`
	InputAmount  string `json:"input_amount"`
	OutputAmount string `json:"output_amount"`
	Fees         string `json:"fees"`
	ZeroForOne   bool   `json:"zero_for_one"`
}
