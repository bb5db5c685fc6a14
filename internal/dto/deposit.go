package dto

import (
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
)

type CreateDepositRequestDTO struct {
	Amount         *float64 `json:"amount" example:"100"`
	Currency       string   `json:"currency" example:"USD"`
	CryptoAmount   *float64 `json:"cryptoAmount" example:"100"`
	CryptoCurrency string   `json:"cryptoCurrency" example:"USDT"`
	WalletAddress  string   `json:"walletAddress" example:"0x52908400098527886E0F7030069857D2E4169EE7"`
	DepositMethod  string   `json:"depositMethod,omitempty" example:"crypto"`
}

func (r CreateDepositRequestDTO) MissingFields() []string {
	fields := []string{}
	if r.Amount == nil {
		fields = append(fields, "amount")
	}
	fields = append(fields, missing(map[string]string{"currency": r.Currency}, "currency")...)
	if r.CryptoAmount == nil {
		fields = append(fields, "cryptoAmount")
	}
	fields = append(fields, missing(map[string]string{
		"cryptoCurrency": r.CryptoCurrency,
		"walletAddress":  r.WalletAddress,
	}, "cryptoCurrency", "walletAddress")...)
	return fields
}

type ConfirmDepositRequestDTO struct {
	DepositID       string `json:"depositId"`
	TransactionHash string `json:"transactionHash" example:"0xabc"`
}

type CancelDepositRequestDTO struct {
	DepositID string `json:"depositId"`
}

type DepositDTO struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Amount          float64   `json:"amount" example:"100"`
	Currency        string    `json:"currency" example:"USD"`
	CryptoAmount    float64   `json:"cryptoAmount" example:"100"`
	CryptoCurrency  string    `json:"cryptoCurrency" example:"USDT"`
	WalletAddress   string    `json:"walletAddress"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	Status          string    `json:"status" example:"pending"`
	DepositMethod   string    `json:"depositMethod" example:"crypto"`
	BonusApplied    float64   `json:"bonusApplied" example:"0"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type DepositResponseDTO struct {
	Message string     `json:"message"`
	Deposit DepositDTO `json:"deposit"`
}

type ConfirmDepositResponseDTO struct {
	Message string             `json:"message"`
	Wallet  *WalletResponseDTO `json:"wallet"`
	Deposit DepositDTO         `json:"deposit"`
}

func NewDepositDTO(d *domain.Deposit) DepositDTO {
	return DepositDTO{
		ID:              d.ID,
		UserID:          d.UserID,
		Amount:          d.Amount,
		Currency:        d.Currency,
		CryptoAmount:    d.CryptoAmount,
		CryptoCurrency:  d.CryptoCurrency,
		WalletAddress:   d.WalletAddress,
		TransactionHash: d.TransactionHash,
		Status:          string(d.Status),
		DepositMethod:   d.DepositMethod,
		BonusApplied:    d.BonusApplied,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func NewDepositDTOs(deposits []domain.Deposit) []DepositDTO {
	response := make([]DepositDTO, len(deposits))
	for i := range deposits {
		response[i] = NewDepositDTO(&deposits[i])
	}
	return response
}
