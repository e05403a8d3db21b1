package model

// TokenMeta describes one side of a pool. The zero address is the native
// asset and never needs an ERC20 call.
type TokenMeta struct {
	Address  string `json:"address"`
	Native   bool   `json:"native,omitempty"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	// Resolved is false when decimals() could not be read; Decimals is then 0
	// and should not be trusted.
	Resolved bool `json:"resolved"`
}
