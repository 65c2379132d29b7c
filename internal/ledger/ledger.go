// Package ledger implements the share-based rebasing balance accounting.
//
// Balances are derived, never stored: balance = shares * totalSupply / totalShares
// (floor division). Rebasing changes totalSupply only, so every balance scales
// by the same ratio in O(1) regardless of account count.
package ledger

import (
	"errors"
	"math/big"
)

var (
	// ErrInsufficientBalance is returned when a burn or transfer exceeds the
	// account's derived balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for nil, negative or zero amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSupplyUnderflow is returned when a rebase would drive totalSupply to
	// zero or below while shares are still outstanding.
	ErrSupplyUnderflow = errors.New("rebase would underflow total supply")
)

// State holds the two supply-wide totals. The invariant
// totalShares > 0 <=> totalSupply > 0 holds after every operation.
type State struct {
	TotalShares *big.Int
	TotalSupply *big.Int
}

// Entry is one account's position in the ledger. RateBps is the interest rate
// locked at the account's first mint; mint never overwrites an existing rate,
// SetRate does.
type Entry struct {
	Shares  *big.Int
	RateBps uint32
}

// NewState returns an empty ledger state.
func NewState() *State {
	return &State{
		TotalShares: new(big.Int),
		TotalSupply: new(big.Int),
	}
}

// NewEntry returns an empty account entry.
func NewEntry() *Entry {
	return &Entry{Shares: new(big.Int)}
}

// Balance derives the account's balance from its shares at the current
// exchange rate (floor division).
func Balance(s *State, e *Entry) *big.Int {
	if s.TotalShares.Sign() == 0 || e.Shares.Sign() == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(e.Shares, s.TotalSupply)
	return out.Quo(out, s.TotalShares)
}

// SharesForAmount converts a balance amount to shares at the current exchange
// rate, rounding down.
func SharesForAmount(s *State, amount *big.Int) *big.Int {
	if s.TotalSupply.Sign() == 0 {
		// Bootstrap: 1 share per unit.
		return new(big.Int).Set(amount)
	}
	out := new(big.Int).Mul(amount, s.TotalShares)
	return out.Quo(out, s.TotalSupply)
}

// sharesForAmountCeil converts a balance amount to shares rounding up.
// Burns use this so rounding always favors the ledger.
func sharesForAmountCeil(s *State, amount *big.Int) *big.Int {
	if s.TotalSupply.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	num := new(big.Int).Mul(amount, s.TotalShares)
	out, rem := new(big.Int).QuoRem(num, s.TotalSupply, new(big.Int))
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// Mint creates amount units for the entry at the current exchange rate
// (bootstrap 1:1 on the first-ever mint). The rate locks only if the entry
// holds no shares yet; an existing locked rate is kept.
func Mint(s *State, e *Entry, amount *big.Int, rateBps uint32) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	shares := SharesForAmount(s, amount)
	if shares.Sign() == 0 {
		// Exchange rate has grown past the amount's share resolution; minting
		// would create balance out of thin air.
		return ErrInvalidAmount
	}
	if e.Shares.Sign() == 0 {
		e.RateBps = rateBps
	}
	e.Shares.Add(e.Shares, shares)
	s.TotalShares.Add(s.TotalShares, shares)
	s.TotalSupply.Add(s.TotalSupply, amount)
	return nil
}

// Burn destroys amount units held by the entry. The share conversion rounds
// up, so dust rounding never favors the account.
func Burn(s *State, e *Entry, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if Balance(s, e).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	shares := sharesForAmountCeil(s, amount)
	if shares.Cmp(e.Shares) > 0 {
		shares = new(big.Int).Set(e.Shares)
	}
	e.Shares.Sub(e.Shares, shares)
	s.TotalShares.Sub(s.TotalShares, shares)
	s.TotalSupply.Sub(s.TotalSupply, amount)
	if s.TotalShares.Sign() == 0 {
		// Sweep residual dust so totalShares > 0 <=> totalSupply > 0 holds.
		s.TotalSupply.SetInt64(0)
	}
	return nil
}

// Transfer moves amount from one entry to another by moving the equivalent
// shares. Totals are untouched.
func Transfer(s *State, from, to *Entry, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if Balance(s, from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	shares := SharesForAmount(s, amount)
	if shares.Cmp(from.Shares) > 0 {
		shares = new(big.Int).Set(from.Shares)
	}
	from.Shares.Sub(from.Shares, shares)
	to.Shares.Add(to.Shares, shares)
	return nil
}

// RebaseDelta adjusts totalSupply by delta (positive or negative) without
// touching totalShares. Rejected on an empty ledger and when the result would
// not stay positive while shares are outstanding.
func RebaseDelta(s *State, delta *big.Int) error {
	if delta == nil || delta.Sign() == 0 {
		return ErrInvalidAmount
	}
	next := new(big.Int).Add(s.TotalSupply, delta)
	return rebaseTo(s, next)
}

// RebaseSet replaces totalSupply with an absolute value.
func RebaseSet(s *State, absolute *big.Int) error {
	if absolute == nil {
		return ErrInvalidAmount
	}
	return rebaseTo(s, new(big.Int).Set(absolute))
}

func rebaseTo(s *State, next *big.Int) error {
	if s.TotalShares.Sign() == 0 {
		return ErrSupplyUnderflow
	}
	if next.Sign() <= 0 {
		return ErrSupplyUnderflow
	}
	s.TotalSupply.Set(next)
	return nil
}

// SetRate replaces the entry's locked rate. Kept separate from Mint on
// purpose: repeated mints never silently re-lock an account.
func SetRate(e *Entry, rateBps uint32) {
	e.RateBps = rateBps
}
