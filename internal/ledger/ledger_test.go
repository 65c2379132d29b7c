package ledger

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(v int64) *big.Int { return big.NewInt(v) }

func TestBootstrapMintIsOneToOne(t *testing.T) {
	s := NewState()
	a := NewEntry()

	require.NoError(t, Mint(s, a, amt(1000), 200))

	assert.Equal(t, amt(1000), s.TotalShares)
	assert.Equal(t, amt(1000), s.TotalSupply)
	assert.Equal(t, amt(1000), Balance(s, a))
	assert.Equal(t, uint32(200), a.RateBps)
}

func TestMintKeepsExistingLockedRate(t *testing.T) {
	s := NewState()
	a := NewEntry()

	require.NoError(t, Mint(s, a, amt(100), 200))
	require.NoError(t, Mint(s, a, amt(100), 900))
	assert.Equal(t, uint32(200), a.RateBps, "second mint must not re-lock the rate")

	SetRate(a, 900)
	assert.Equal(t, uint32(900), a.RateBps)
}

func TestBurnRejectsOverdraw(t *testing.T) {
	s := NewState()
	a := NewEntry()
	require.NoError(t, Mint(s, a, amt(100), 0))

	err := Burn(s, a, amt(101))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, amt(100), Balance(s, a), "failed burn must not change state")
	assert.Equal(t, amt(100), s.TotalSupply)
}

func TestBurnAllRestoresEmptyState(t *testing.T) {
	s := NewState()
	a := NewEntry()
	require.NoError(t, Mint(s, a, amt(100), 0))
	require.NoError(t, RebaseDelta(s, amt(37)))

	require.NoError(t, Burn(s, a, Balance(s, a)))

	assert.Zero(t, s.TotalShares.Sign())
	assert.Zero(t, s.TotalSupply.Sign(), "supply dust must be swept when the last shares burn")
}

func TestRebaseScalesEveryBalanceUniformly(t *testing.T) {
	s := NewState()
	a, b, c := NewEntry(), NewEntry(), NewEntry()
	require.NoError(t, Mint(s, a, amt(100), 0))
	require.NoError(t, Mint(s, b, amt(300), 0))
	require.NoError(t, Mint(s, c, amt(600), 0))

	sharesBefore := new(big.Int).Set(s.TotalShares)

	// +10% supply.
	require.NoError(t, RebaseDelta(s, amt(100)))

	assert.Equal(t, sharesBefore, s.TotalShares, "rebase must never change totalShares")
	assert.Equal(t, amt(110), Balance(s, a))
	assert.Equal(t, amt(330), Balance(s, b))
	assert.Equal(t, amt(660), Balance(s, c))
}

func TestRebaseSetAndUnderflow(t *testing.T) {
	s := NewState()

	// Empty ledger cannot be rebased.
	require.ErrorIs(t, RebaseSet(s, amt(50)), ErrSupplyUnderflow)

	a := NewEntry()
	require.NoError(t, Mint(s, a, amt(100), 0))

	require.NoError(t, RebaseSet(s, amt(250)))
	assert.Equal(t, amt(250), s.TotalSupply)

	require.ErrorIs(t, RebaseDelta(s, amt(-250)), ErrSupplyUnderflow)
	assert.Equal(t, amt(250), s.TotalSupply)
}

func TestTransferMovesSharesOnly(t *testing.T) {
	s := NewState()
	a, b := NewEntry(), NewEntry()
	require.NoError(t, Mint(s, a, amt(1000), 0))

	supplyBefore := new(big.Int).Set(s.TotalSupply)
	sharesBefore := new(big.Int).Set(s.TotalShares)

	require.NoError(t, Transfer(s, a, b, amt(400)))

	assert.Equal(t, supplyBefore, s.TotalSupply)
	assert.Equal(t, sharesBefore, s.TotalShares)
	assert.Equal(t, amt(600), Balance(s, a))
	assert.Equal(t, amt(400), Balance(s, b))

	require.ErrorIs(t, Transfer(s, b, a, amt(401)), ErrInsufficientBalance)
}

// Conservation property: after any sequence of mints, burns, transfers and
// rebases, the sum of derived balances equals totalSupply within a one-unit
// floor-rounding tolerance per account.
func TestConservationUnderRandomOperationSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		s := NewState()
		entries := make([]*Entry, 8)
		for i := range entries {
			entries[i] = NewEntry()
		}

		for op := 0; op < 200; op++ {
			i := rng.Intn(len(entries))
			j := rng.Intn(len(entries))
			amount := amt(int64(rng.Intn(10_000) + 1))

			switch rng.Intn(4) {
			case 0:
				if err := Mint(s, entries[i], amount, uint32(rng.Intn(2000))); err != nil {
					require.ErrorIs(t, err, ErrInvalidAmount)
				}
			case 1:
				if err := Burn(s, entries[i], amount); err != nil {
					require.ErrorIs(t, err, ErrInsufficientBalance)
				}
			case 2:
				if err := Transfer(s, entries[i], entries[j], amount); err != nil {
					require.ErrorIs(t, err, ErrInsufficientBalance)
				}
			case 3:
				if s.TotalShares.Sign() > 0 {
					// delta may be negative (underflow rejected) or zero
					// (invalid amount); either rejection leaves state intact.
					delta := amt(int64(rng.Intn(2000) - 500))
					if err := RebaseDelta(s, delta); err != nil {
						require.True(t,
							errors.Is(err, ErrSupplyUnderflow) || errors.Is(err, ErrInvalidAmount),
							"run %d op %d: unexpected rebase error %v", run, op, err)
					}
				}
			}

			sum := new(big.Int)
			for _, e := range entries {
				sum.Add(sum, Balance(s, e))
			}
			diff := new(big.Int).Sub(s.TotalSupply, sum)
			require.True(t, diff.Sign() >= 0, "run %d op %d: balances exceed supply by %s", run, op, new(big.Int).Neg(diff))
			require.True(t, diff.Cmp(amt(int64(len(entries)))) <= 0,
				"run %d op %d: rounding loss %s exceeds one unit per account", run, op, diff)

			require.Equal(t, s.TotalShares.Sign() > 0, s.TotalSupply.Sign() > 0,
				"run %d op %d: totalShares > 0 <=> totalSupply > 0 violated", run, op)
		}
	}
}

func TestMintAtGrownExchangeRate(t *testing.T) {
	s := NewState()
	a := NewEntry()
	require.NoError(t, Mint(s, a, amt(1000), 0))
	// Triple the supply so one share is worth three units.
	require.NoError(t, RebaseSet(s, amt(3000)))

	b := NewEntry()
	require.NoError(t, Mint(s, b, amt(300), 0))
	assert.Equal(t, amt(100), b.Shares)
	assert.Equal(t, amt(300), Balance(s, b))
}
