package types

import "math/big"

// Account tracks the token balances an identity holds inside the ledger. The
// pool does not implement a token system of its own; balances credited here
// stand in for the external custody collaborator and move atomically with the
// operation that touches them.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// NewAccount returns an account with an initialised balance map.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*big.Int)}
}

// EnsureDefaults populates nil fields so JSON round-trips are safe.
func (a *Account) EnsureDefaults() {
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
}

// BalanceOf returns the account's balance for the given asset, never nil.
func (a *Account) BalanceOf(asset string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[asset]; ok && bal != nil {
		return bal
	}
	return big.NewInt(0)
}

// SetBalance stores a copy of the amount as the account's balance for asset.
func (a *Account) SetBalance(asset string, amount *big.Int) {
	a.EnsureDefaults()
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[asset] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce, Balances: make(map[string]*big.Int, len(a.Balances))}
	for asset, bal := range a.Balances {
		if bal != nil {
			clone.Balances[asset] = new(big.Int).Set(bal)
		}
	}
	return clone
}
