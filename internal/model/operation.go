package model

// Operation kinds accepted by the replayer.
const (
	OpCreatePool      = "create_pool"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
	OpMint            = "mint"
	OpApprove         = "approve"
)

// Operation is one line of a replay script. Amounts are decimal strings;
// empty amounts read as zero.
type Operation struct {
	Op     string `json:"op"`
	Sender string `json:"sender"`
	Value  string `json:"value,omitempty"`

	AssetA string `json:"asset_a,omitempty"`
	AssetB string `json:"asset_b,omitempty"`
	Fee    uint32 `json:"fee,omitempty"`

	PoolID     string `json:"pool_id,omitempty"`
	Amount0    string `json:"amount0,omitempty"`
	Amount1    string `json:"amount1,omitempty"`
	Min0       string `json:"min0,omitempty"`
	Min1       string `json:"min1,omitempty"`
	Shares     string `json:"shares,omitempty"`
	Input      string `json:"input,omitempty"`
	MinOutput  string `json:"min_output,omitempty"`
	ZeroForOne bool   `json:"zero_for_one,omitempty"`

	Asset   string `json:"asset,omitempty"`
	Account string `json:"account,omitempty"`
	Spender string `json:"spender,omitempty"`
	Amount  string `json:"amount,omitempty"`
}
