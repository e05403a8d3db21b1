package model

// PoolMeta captures immutable pool metadata with optional token details.
type PoolMeta struct {
	Asset0 string     `json:"asset0"`
	Asset1 string     `json:"asset1"`
	Fee    uint32     `json:"fee"`
	Token0 *TokenMeta `json:"token0,omitempty"`
	Token1 *TokenMeta `json:"token1,omitempty"`
}
