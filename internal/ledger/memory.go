package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NativeAsset is the asset key under which native balances are kept.
var NativeAsset = common.Address{}

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownSnapshot     = errors.New("unknown snapshot")
)

type balanceKey struct {
	asset   common.Address
	account common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

type change struct {
	balance   *balanceKey
	allowance *allowanceKey
	prev      uint256.Int
}

// Memory is an in-process ledger of native and token balances. Tokens
// follow ERC20 semantics: transfers report false on insufficient balance or
// allowance instead of failing. Writes are journaled so a caller can roll
// back to a snapshot.
type Memory struct {
	mu         sync.RWMutex
	balances   map[balanceKey]uint256.Int
	allowances map[allowanceKey]uint256.Int
	journal    []change
}

func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[balanceKey]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
	}
}

// BalanceOf returns the balance of account in asset.
func (m *Memory) BalanceOf(asset, account common.Address) *uint256.Int {
	m.mu.RLock()
	bal := m.balances[balanceKey{asset: asset, account: account}]
	m.mu.RUnlock()
	return &bal
}

// Allowance returns how much spender may move from owner's token balance.
func (m *Memory) Allowance(token, owner, spender common.Address) *uint256.Int {
	m.mu.RLock()
	val := m.allowances[allowanceKey{token: token, owner: owner, spender: spender}]
	m.mu.RUnlock()
	return &val
}

// Mint credits amount of asset to account.
func (m *Memory) Mint(asset, account common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := balanceKey{asset: asset, account: account}
	bal := m.balances[key]
	sum, overflow := new(uint256.Int).AddOverflow(&bal, amount)
	if overflow {
		return fmt.Errorf("mint %s: balance overflow", asset.Hex())
	}
	m.setBalance(key, *sum)
	return nil
}

// Approve sets spender's allowance over owner's token balance.
func (m *Memory) Approve(token, owner, spender common.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setAllowance(allowanceKey{token: token, owner: owner, spender: spender}, *amount)
}

// TransferNative moves native currency, failing on insufficient balance.
func (m *Memory) TransferNative(_ context.Context, from, to common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.move(NativeAsset, from, to, amount) {
		return fmt.Errorf("native transfer from %s: %w", from.Hex(), ErrInsufficientBalance)
	}
	return nil
}

// Transfer moves token from from to to.
func (m *Memory) Transfer(_ context.Context, token, from, to common.Address, amount *uint256.Int) (bool, error) {
	if token == NativeAsset {
		return false, fmt.Errorf("transfer: native asset is not a token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(token, from, to, amount), nil
}

// TransferFrom moves token from from to to, spending spender's allowance.
// An owner moving its own balance needs no allowance.
func (m *Memory) TransferFrom(_ context.Context, token, spender, from, to common.Address, amount *uint256.Int) (bool, error) {
	if token == NativeAsset {
		return false, fmt.Errorf("transferFrom: native asset is not a token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if spender != from {
		key := allowanceKey{token: token, owner: from, spender: spender}
		allowed := m.allowances[key]
		if allowed.Lt(amount) {
			return false, nil
		}
		bal := m.balances[balanceKey{asset: token, account: from}]
		if bal.Lt(amount) {
			return false, nil
		}
		m.setAllowance(key, *new(uint256.Int).Sub(&allowed, amount))
	}
	return m.move(token, from, to, amount), nil
}

// Snapshot returns an id for the current journal position.
func (m *Memory) Snapshot() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.journal)
}

// RevertToSnapshot undoes every write made after the snapshot was taken.
func (m *Memory) RevertToSnapshot(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id > len(m.journal) {
		panic(fmt.Errorf("%w: %d", ErrUnknownSnapshot, id))
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		c := m.journal[i]
		switch {
		case c.balance != nil:
			m.balances[*c.balance] = c.prev
		case c.allowance != nil:
			m.allowances[*c.allowance] = c.prev
		}
	}
	m.journal = m.journal[:id]
}

// Commit drops the journal; earlier snapshots become invalid.
func (m *Memory) Commit() {
	m.mu.Lock()
	m.journal = m.journal[:0]
	m.mu.Unlock()
}

// move assumes m.mu is held.
func (m *Memory) move(asset, from, to common.Address, amount *uint256.Int) bool {
	fromKey := balanceKey{asset: asset, account: from}
	toKey := balanceKey{asset: asset, account: to}

	fromBal := m.balances[fromKey]
	if fromBal.Lt(amount) {
		return false
	}
	if from == to {
		return true
	}
	toBal := m.balances[toKey]
	sum, overflow := new(uint256.Int).AddOverflow(&toBal, amount)
	if overflow {
		return false
	}
	m.setBalance(fromKey, *new(uint256.Int).Sub(&fromBal, amount))
	m.setBalance(toKey, *sum)
	return true
}

func (m *Memory) setBalance(key balanceKey, value uint256.Int) {
	k := key
	m.journal = append(m.journal, change{balance: &k, prev: m.balances[key]})
	m.balances[key] = value
}

func (m *Memory) setAllowance(key allowanceKey, value uint256.Int) {
	k := key
	m.journal = append(m.journal, change{allowance: &k, prev: m.allowances[key]})
	m.allowances[key] = value
}

// Balance is one non-zero balance held by the ledger.
type Balance struct {
	Asset   common.Address
	Account common.Address
	Amount  uint256.Int
}

// Allowance is one non-zero token allowance.
type Allowance struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  uint256.Int
}

// Export copies every non-zero balance and allowance in a stable order.
func (m *Memory) Export() ([]Balance, []Allowance) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	balances := make([]Balance, 0, len(m.balances))
	for key, amount := range m.balances {
		if amount.IsZero() {
			continue
		}
		balances = append(balances, Balance{Asset: key.asset, Account: key.account, Amount: amount})
	}
	sort.Slice(balances, func(i, j int) bool {
		if c := bytes.Compare(balances[i].Asset.Bytes(), balances[j].Asset.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(balances[i].Account.Bytes(), balances[j].Account.Bytes()) < 0
	})

	allowances := make([]Allowance, 0, len(m.allowances))
	for key, amount := range m.allowances {
		if amount.IsZero() {
			continue
		}
		allowances = append(allowances, Allowance{Token: key.token, Owner: key.owner, Spender: key.spender, Amount: amount})
	}
	sort.Slice(allowances, func(i, j int) bool {
		a, b := allowances[i], allowances[j]
		if c := bytes.Compare(a.Token.Bytes(), b.Token.Bytes()); c != 0 {
			return c < 0
		}
		if c := bytes.Compare(a.Owner.Bytes(), b.Owner.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Spender.Bytes(), b.Spender.Bytes()) < 0
	})
	return balances, allowances
}

// Import replaces the ledger content and clears the journal.
func (m *Memory) Import(balances []Balance, allowances []Allowance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances = make(map[balanceKey]uint256.Int, len(balances))
	for _, b := range balances {
		m.balances[balanceKey{asset: b.Asset, account: b.Account}] = b.Amount
	}
	m.allowances = make(map[allowanceKey]uint256.Int, len(allowances))
	for _, a := range allowances {
		m.allowances[allowanceKey{token: a.Token, owner: a.Owner, spender: a.Spender}] = a.Amount
	}
	m.journal = nil
}
