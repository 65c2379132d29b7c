// Package rate computes the composite interest rate and the performance fee.
//
// All rates are expressed in basis points (1 bps = 0.01%). The functions here
// are pure: state (utilization inputs, tier tables, lock records) is passed in
// by the caller.
package rate

import (
	"errors"
	"math/big"
	"time"
)

const (
	// BpsDenominator is the basis-point scale used throughout.
	BpsDenominator = 10_000

	// SecondsPerYear is the annualization window for rates and fees.
	SecondsPerYear = 365 * 24 * 3600
)

var (
	// ErrInvalidCurve rejects a curve unless
	// rateAtZero <= rateAtKink <= rateAtMax and kink in (0, 10000).
	ErrInvalidCurve = errors.New("invalid rate curve")

	// ErrInvalidTiers rejects tier tables whose thresholds are not strictly
	// increasing.
	ErrInvalidTiers = errors.New("invalid tier table")
)

// Curve is a kinked piecewise-linear rate curve over utilization.
type Curve struct {
	KinkBps       uint32
	RateAtZeroBps uint32
	RateAtKinkBps uint32
	RateAtMaxBps  uint32
}

// Validate checks the monotonicity and kink-position constraints.
func (c Curve) Validate() error {
	if c.KinkBps == 0 || c.KinkBps >= BpsDenominator {
		return ErrInvalidCurve
	}
	if c.RateAtZeroBps > c.RateAtKinkBps || c.RateAtKinkBps > c.RateAtMaxBps {
		return ErrInvalidCurve
	}
	return nil
}

// BaseRate interpolates the curve at the given utilization (bps). The two
// segments share the kink point, so the curve is continuous there.
func (c Curve) BaseRate(utilizationBps uint32) uint32 {
	if utilizationBps > BpsDenominator {
		utilizationBps = BpsDenominator
	}
	if utilizationBps <= c.KinkBps {
		span := uint64(c.RateAtKinkBps - c.RateAtZeroBps)
		return c.RateAtZeroBps + uint32(span*uint64(utilizationBps)/uint64(c.KinkBps))
	}
	span := uint64(c.RateAtMaxBps - c.RateAtKinkBps)
	width := uint64(BpsDenominator - c.KinkBps)
	return c.RateAtKinkBps + uint32(span*uint64(utilizationBps-c.KinkBps)/width)
}

// Utilization returns totalDeposited / maxDeposits in basis points, clamped to
// [0, 10000]. A zero or nil maximum reads as zero utilization.
func Utilization(totalDeposited, maxDeposits *big.Int) uint32 {
	if totalDeposited == nil || maxDeposits == nil {
		return 0
	}
	if totalDeposited.Sign() <= 0 || maxDeposits.Sign() <= 0 {
		return 0
	}
	u := new(big.Int).Mul(totalDeposited, big.NewInt(BpsDenominator))
	u.Quo(u, maxDeposits)
	if u.Cmp(big.NewInt(BpsDenominator)) > 0 {
		return BpsDenominator
	}
	return uint32(u.Uint64())
}

// Tier grants a bonus to deposits at or above its threshold.
type Tier struct {
	Threshold *big.Int
	BonusBps  uint32
}

// ValidateTiers checks thresholds are positive and strictly increasing.
func ValidateTiers(tiers []Tier) error {
	for i, tier := range tiers {
		if tier.Threshold == nil || tier.Threshold.Sign() <= 0 {
			return ErrInvalidTiers
		}
		if i > 0 && tier.Threshold.Cmp(tiers[i-1].Threshold) <= 0 {
			return ErrInvalidTiers
		}
	}
	return nil
}

// TierBonus returns the bonus of the greatest tier whose threshold does not
// exceed depositAmount, or 0 when no tier qualifies. Tiers must be sorted by
// threshold ascending.
func TierBonus(tiers []Tier, depositAmount *big.Int) uint32 {
	if depositAmount == nil {
		return 0
	}
	bonus := uint32(0)
	for _, tier := range tiers {
		if depositAmount.Cmp(tier.Threshold) < 0 {
			break
		}
		bonus = tier.BonusBps
	}
	return bonus
}

// Lock is the active lock view the engine needs: when it expires and what it
// pays.
type Lock struct {
	UnlockAt time.Time
	BonusBps uint32
}

// LockBonus returns the lock's bonus while the lock is still active, 0 once
// expired or when there is no lock.
func LockBonus(lock *Lock, now time.Time) uint32 {
	if lock == nil || !now.Before(lock.UnlockAt) {
		return 0
	}
	return lock.BonusBps
}

// Composite sums the utilization base rate, the deposit tier bonus and the
// lock bonus. No implicit cap is applied beyond the configured inputs.
func Composite(curve Curve, utilizationBps uint32, tiers []Tier, depositAmount *big.Int, lock *Lock, now time.Time) uint32 {
	return curve.BaseRate(utilizationBps) + TierBonus(tiers, depositAmount) + LockBonus(lock, now)
}

// InterestFor computes simple interest on principal at rateBps over elapsed
// seconds, annualized (floor division). Negative inputs yield zero.
func InterestFor(principal *big.Int, rateBps uint32, elapsed time.Duration) *big.Int {
	secs := int64(elapsed / time.Second)
	if principal == nil || principal.Sign() <= 0 || secs <= 0 || rateBps == 0 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(principal, big.NewInt(int64(rateBps)))
	out.Mul(out, big.NewInt(secs))
	out.Quo(out, big.NewInt(BpsDenominator))
	out.Quo(out, big.NewInt(SecondsPerYear))
	return out
}

// PerformanceFee computes the fee on return in excess of the annual target.
//
// The realized gain (current - initial) over elapsed seconds is annualized
// against initial; the portion of the annualized return above targetRateBps is
// charged feeShareBps, scaled back to the elapsed window. The result is never
// negative and never exceeds the realized gain.
func PerformanceFee(current, initial *big.Int, elapsed time.Duration, targetRateBps, feeShareBps uint32) *big.Int {
	secs := int64(elapsed / time.Second)
	if current == nil || initial == nil || initial.Sign() <= 0 || secs <= 0 || feeShareBps == 0 {
		return new(big.Int)
	}
	gain := new(big.Int).Sub(current, initial)
	if gain.Sign() <= 0 {
		return new(big.Int)
	}

	// Gain the target rate would have produced over the elapsed window.
	targetGain := new(big.Int).Mul(initial, big.NewInt(int64(targetRateBps)))
	targetGain.Mul(targetGain, big.NewInt(secs))
	targetGain.Quo(targetGain, big.NewInt(BpsDenominator))
	targetGain.Quo(targetGain, big.NewInt(SecondsPerYear))

	excess := new(big.Int).Sub(gain, targetGain)
	if excess.Sign() <= 0 {
		return new(big.Int)
	}

	fee := excess.Mul(excess, big.NewInt(int64(feeShareBps)))
	fee.Quo(fee, big.NewInt(BpsDenominator))
	if fee.Cmp(gain) > 0 {
		fee.Set(gain)
	}
	return fee
}
