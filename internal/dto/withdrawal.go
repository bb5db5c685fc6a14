package dto

import (
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
)

type WithdrawRequestDTO struct {
	Amount        *float64 `json:"amount" example:"50"`
	Currency      string   `json:"currency" example:"USD"`
	WalletAddress string   `json:"walletAddress" example:"addr2"`
}

func (r WithdrawRequestDTO) MissingFields() []string {
	fields := []string{}
	if r.Amount == nil {
		fields = append(fields, "amount")
	}
	return append(fields, missing(map[string]string{
		"currency":      r.Currency,
		"walletAddress": r.WalletAddress,
	}, "currency", "walletAddress")...)
}

type ConfirmWithdrawalRequestDTO struct {
	WithdrawalID    string `json:"withdrawalId"`
	TransactionHash string `json:"transactionHash"`
}

type CancelWithdrawalRequestDTO struct {
	WithdrawalID string `json:"withdrawalId"`
}

type WithdrawalDTO struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Amount          float64   `json:"amount" example:"50"`
	Currency        string    `json:"currency" example:"USD"`
	WalletAddress   string    `json:"walletAddress"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	Status          string    `json:"status" example:"pending"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type WithdrawalResponseDTO struct {
	Message    string             `json:"message"`
	Wallet     *WalletResponseDTO `json:"wallet,omitempty"`
	Withdrawal WithdrawalDTO      `json:"withdrawal"`
}

func NewWithdrawalDTO(wd *domain.Withdrawal) WithdrawalDTO {
	return WithdrawalDTO{
		ID:              wd.ID,
		UserID:          wd.UserID,
		Amount:          wd.Amount,
		Currency:        wd.Currency,
		WalletAddress:   wd.WalletAddress,
		TransactionHash: wd.TransactionHash,
		Status:          string(wd.Status),
		CreatedAt:       wd.CreatedAt,
		UpdatedAt:       wd.UpdatedAt,
	}
}

func NewWithdrawalDTOs(withdrawals []domain.Withdrawal) []WithdrawalDTO {
	response := make([]WithdrawalDTO, len(withdrawals))
	for i := range withdrawals {
		response[i] = NewWithdrawalDTO(&withdrawals[i])
	}
	return response
}
