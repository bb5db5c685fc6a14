package domain

import "time"

type User struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	Phone         string    `db:"phone"`
	Currency      string    `db:"currency"`
	Country       string    `db:"country"`
	CreatedAt     time.Time `db:"created_at"`
	RefreshTokens []string  `db:"-"`
}

type WelcomeBonus struct {
	Amount    float64    `json:"amount"`
	Claimed   bool       `json:"claimed"`
	ClaimDate *time.Time `json:"claimDate,omitempty"`
}

type ReferralCredit struct {
	UserID string    `json:"userId"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

type ReferralBonus struct {
	Amount    float64          `json:"amount"`
	Referrals []ReferralCredit `json:"referrals"`
}

type DepositBonus struct {
	Amount     float64   `json:"amount"`
	DepositID  string    `json:"depositId"`
	Date       time.Time `json:"date"`
	ExpiryDate time.Time `json:"expiryDate"`
}

// Bonuses is persisted as a single JSONB document on the wallet row.
type Bonuses struct {
	WelcomeBonus   WelcomeBonus   `json:"welcomeBonus"`
	ReferralBonus  ReferralBonus  `json:"referralBonus"`
	DepositBonuses []DepositBonus `json:"depositBonuses"`
}

// Wallet.AvailableBalance is derived and must only be written through the
// ledger package.
type Wallet struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	TotalBalance     float64   `db:"total_balance"`
	ReservedBalance  float64   `db:"reserved_balance"`
	AvailableBalance float64   `db:"available_balance"`
	TotalProfit      float64   `db:"total_profit"`
	TotalDeposits    float64   `db:"total_deposits"`
	TotalWithdrawals float64   `db:"total_withdrawals"`
	Bonuses          Bonuses   `db:"bonuses"`
	Currency         string    `db:"currency"`
	LastUpdated      time.Time `db:"last_updated"`
	CreatedAt        time.Time `db:"created_at"`
}

type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositCompleted DepositStatus = "completed"
	DepositFailed    DepositStatus = "failed"
	DepositCancelled DepositStatus = "cancelled"
)

type Deposit struct {
	ID              string        `db:"id"`
	UserID          string        `db:"user_id"`
	Amount          float64       `db:"amount"`
	Currency        string        `db:"currency"`
	CryptoAmount    float64       `db:"crypto_amount"`
	CryptoCurrency  string        `db:"crypto_currency"`
	WalletAddress   string        `db:"wallet_address"`
	TransactionHash string        `db:"transaction_hash"`
	Status          DepositStatus `db:"status"`
	DepositMethod   string        `db:"deposit_method"`
	BonusApplied    float64       `db:"bonus_applied"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
	WithdrawalCancelled  WithdrawalStatus = "cancelled"
)

type Withdrawal struct {
	ID              string           `db:"id"`
	UserID          string           `db:"user_id"`
	Amount          float64          `db:"amount"`
	Currency        string           `db:"currency"`
	WalletAddress   string           `db:"wallet_address"`
	TransactionHash string           `db:"transaction_hash"`
	Status          WithdrawalStatus `db:"status"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
