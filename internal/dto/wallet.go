package dto

import (
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
)

type WalletResponseDTO struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	TotalBalance     float64        `json:"totalBalance" example:"100"`
	ReservedBalance  float64        `json:"reservedBalance" example:"0"`
	AvailableBalance float64        `json:"availableBalance" example:"150"`
	TotalProfit      float64        `json:"totalProfit" example:"0"`
	TotalDeposits    float64        `json:"totalDeposits" example:"100"`
	TotalWithdrawals float64        `json:"totalWithdrawals" example:"0"`
	Bonuses          domain.Bonuses `json:"bonuses"`
	Currency         string         `json:"currency" example:"USD"`
	LastUpdated      time.Time      `json:"lastUpdated"`
	CreatedAt        time.Time      `json:"createdAt"`
}

func NewWalletDTO(w *domain.Wallet) *WalletResponseDTO {
	if w == nil {
		return nil
	}
	return &WalletResponseDTO{
		ID:               w.ID,
		UserID:           w.UserID,
		TotalBalance:     w.TotalBalance,
		ReservedBalance:  w.ReservedBalance,
		AvailableBalance: w.AvailableBalance,
		TotalProfit:      w.TotalProfit,
		TotalDeposits:    w.TotalDeposits,
		TotalWithdrawals: w.TotalWithdrawals,
		Bonuses:          w.Bonuses,
		Currency:         w.Currency,
		LastUpdated:      w.LastUpdated,
		CreatedAt:        w.CreatedAt,
	}
}
