// Package ledger holds the wallet arithmetic. Every exported mutation returns a
// wallet whose AvailableBalance has already been recomputed, so callers never
// persist a stale derived value.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/fundsledger/internal/domain"
)

const places = 2

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive with at most two decimal places")
)

// Mutation is a ledger step applied to a locked wallet before it is persisted.
type Mutation func(w domain.Wallet) (domain.Wallet, error)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func money(d decimal.Decimal) float64 {
	return d.Round(places).InexactFloat64()
}

func NewWallet(walletID, userID, currency string, welcomeBonus float64, now time.Time) domain.Wallet {
	if currency == "" {
		currency = "USD"
	}
	w := domain.Wallet{
		ID:       walletID,
		UserID:   userID,
		Currency: currency,
		Bonuses: domain.Bonuses{
			WelcomeBonus: domain.WelcomeBonus{
				Amount:    welcomeBonus,
				ClaimDate: &now,
			},
			ReferralBonus: domain.ReferralBonus{
				Referrals: []domain.ReferralCredit{},
			},
			DepositBonuses: []domain.DepositBonus{},
		},
		CreatedAt: now,
	}
	return touch(w, now)
}

func TotalBonuses(w domain.Wallet) float64 {
	return money(totalBonuses(w))
}

func totalBonuses(w domain.Wallet) decimal.Decimal {
	sum := dec(w.Bonuses.WelcomeBonus.Amount).Add(dec(w.Bonuses.ReferralBonus.Amount))
	for _, b := range w.Bonuses.DepositBonuses {
		sum = sum.Add(dec(b.Amount))
	}
	return sum
}

// RecomputeDerived sets AvailableBalance = TotalBalance + bonuses - ReservedBalance.
func RecomputeDerived(w domain.Wallet) domain.Wallet {
	available := dec(w.TotalBalance).Add(totalBonuses(w)).Sub(dec(w.ReservedBalance))
	if available.IsNegative() {
		available = decimal.Zero
	}
	w.AvailableBalance = money(available)
	return w
}

func touch(w domain.Wallet, now time.Time) domain.Wallet {
	w.LastUpdated = now
	return RecomputeDerived(w)
}

// ValidateAmount accepts only positive amounts expressible in whole cents.
func ValidateAmount(amount float64) error {
	d := dec(amount)
	if !d.IsPositive() || d.Exponent() < -places {
		return ErrInvalidAmount
	}
	return nil
}

func positive(amount float64) error {
	return ValidateAmount(amount)
}

func CreditDeposit(w domain.Wallet, amount float64, now time.Time) (domain.Wallet, error) {
	if err := positive(amount); err != nil {
		return w, err
	}
	w.TotalBalance = money(dec(w.TotalBalance).Add(dec(amount)))
	w.TotalDeposits = money(dec(w.TotalDeposits).Add(dec(amount)))
	return touch(w, now), nil
}

// Reserve holds amount against AvailableBalance without touching TotalBalance.
func Reserve(w domain.Wallet, amount float64, now time.Time) (domain.Wallet, error) {
	if err := positive(amount); err != nil {
		return w, err
	}
	w = RecomputeDerived(w)
	if dec(w.AvailableBalance).LessThan(dec(amount)) {
		return w, ErrInsufficientFunds
	}
	w.ReservedBalance = money(dec(w.ReservedBalance).Add(dec(amount)))
	return touch(w, now), nil
}

func Release(w domain.Wallet, amount float64, now time.Time) (domain.Wallet, error) {
	if err := positive(amount); err != nil {
		return w, err
	}
	w.ReservedBalance = money(decimal.Max(dec(w.ReservedBalance).Sub(dec(amount)), decimal.Zero))
	return touch(w, now), nil
}

// Settle turns a reservation into a debit. TotalBalance is drawn first and any
// remainder is consumed from bonuses: welcome, then referral, then deposit
// bonuses in grant order.
func Settle(w domain.Wallet, amount float64, now time.Time) (domain.Wallet, error) {
	if err := positive(amount); err != nil {
		return w, err
	}
	due := dec(amount)
	if dec(w.TotalBalance).Add(totalBonuses(w)).LessThan(due) {
		return w, ErrInsufficientFunds
	}

	w.ReservedBalance = money(decimal.Max(dec(w.ReservedBalance).Sub(due), decimal.Zero))
	w.TotalWithdrawals = money(dec(w.TotalWithdrawals).Add(due))

	take := func(have decimal.Decimal) decimal.Decimal {
		used := decimal.Min(have, due)
		due = due.Sub(used)
		return have.Sub(used)
	}

	w.TotalBalance = money(take(dec(w.TotalBalance)))
	if due.IsPositive() && w.Bonuses.WelcomeBonus.Amount > 0 {
		w.Bonuses.WelcomeBonus.Amount = money(take(dec(w.Bonuses.WelcomeBonus.Amount)))
		w.Bonuses.WelcomeBonus.Claimed = true
		w.Bonuses.WelcomeBonus.ClaimDate = &now
	}
	if due.IsPositive() {
		w.Bonuses.ReferralBonus.Amount = money(take(dec(w.Bonuses.ReferralBonus.Amount)))
	}
	bonuses := w.Bonuses.DepositBonuses[:0:0]
	for _, b := range w.Bonuses.DepositBonuses {
		if due.IsPositive() {
			b.Amount = money(take(dec(b.Amount)))
		}
		bonuses = append(bonuses, b)
	}
	w.Bonuses.DepositBonuses = bonuses

	return touch(w, now), nil
}

func AddDepositBonus(w domain.Wallet, depositID string, amount float64, now time.Time, ttl time.Duration) (domain.Wallet, error) {
	if err := positive(amount); err != nil {
		return w, err
	}
	bonus := domain.DepositBonus{
		Amount:    money(dec(amount)),
		DepositID: depositID,
		Date:      now,
	}
	if ttl > 0 {
		bonus.ExpiryDate = now.Add(ttl)
	}
	w.Bonuses.DepositBonuses = append(w.Bonuses.DepositBonuses, bonus)
	return touch(w, now), nil
}

// ExpireBonuses drops deposit bonuses whose expiry has passed. A zero
// ExpiryDate never expires.
func ExpireBonuses(w domain.Wallet, now time.Time) domain.Wallet {
	kept := make([]domain.DepositBonus, 0, len(w.Bonuses.DepositBonuses))
	for _, b := range w.Bonuses.DepositBonuses {
		if !b.ExpiryDate.IsZero() && !b.ExpiryDate.After(now) {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == len(w.Bonuses.DepositBonuses) {
		return w
	}
	w.Bonuses.DepositBonuses = kept
	return RecomputeDerived(w)
}

func CreditReferral(w domain.Wallet, referredUserID string, amount float64, now time.Time) (domain.Wallet, error) {
	if err := positive(amount); err != nil {
		return w, err
	}
	w.Bonuses.ReferralBonus.Amount = money(dec(w.Bonuses.ReferralBonus.Amount).Add(dec(amount)))
	w.Bonuses.ReferralBonus.Referrals = append(w.Bonuses.ReferralBonus.Referrals, domain.ReferralCredit{
		UserID: referredUserID,
		Amount: amount,
		Date:   now,
	})
	return touch(w, now), nil
}

// DepositBonusFor returns the bonus granted for a confirmed deposit.
func DepositBonusFor(amount, percent float64) float64 {
	if percent <= 0 {
		return 0
	}
	return money(dec(amount).Mul(dec(percent)).Div(decimal.NewFromInt(100)))
}
