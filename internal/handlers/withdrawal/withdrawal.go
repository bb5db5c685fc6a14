package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/dto"
	"github.com/GlebRadaev/fundsledger/internal/ledger"
	"github.com/GlebRadaev/fundsledger/internal/service/withdrawalservice"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/GlebRadaev/fundsledger/pkg/utils"
)

//go:generate mockgen -destination=mock_withdrawal.go -package=withdrawal . Service

type Service interface {
	Create(ctx context.Context, user *domain.User, in withdrawalservice.CreateInput) (*domain.Withdrawal, *domain.Wallet, error)
	Confirm(ctx context.Context, userID, withdrawalID, txHash string) (*domain.Withdrawal, *domain.Wallet, error)
	Cancel(ctx context.Context, userID, withdrawalID string) (*domain.Withdrawal, *domain.Wallet, error)
	List(ctx context.Context, userID string) ([]domain.Withdrawal, error)
}

type WithdrawalHandler struct {
	withdrawalService Service
}

func New(withdrawalService Service) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
	}
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive with at most two decimal places")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		utils.RespondWithError(w, http.StatusBadRequest, "INSUFFICIENT_FUNDS", "Insufficient funds")
	case errors.Is(err, withdrawalservice.ErrWithdrawalNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "NOT_FOUND", "Withdrawal not found")
	case errors.Is(err, withdrawalservice.ErrWithdrawalNotPending):
		utils.RespondWithError(w, http.StatusConflict, "WITHDRAWAL_NOT_PENDING", "Withdrawal is not pending")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// Withdraw godoc
//
//	@Summary		Request a withdrawal
//	@Description	Reserve funds and record a pending withdrawal. The reserved amount leaves availableBalance immediately.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WithdrawRequestDTO	true	"Withdrawal payload"
//	@Success		201		{object}	dto.WithdrawalResponseDTO
//	@Failure		400		{object}	utils.Response	"Missing fields, invalid amount or insufficient funds"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/withdraw [post]
func (h *WithdrawalHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	var req dto.WithdrawRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if fields := req.MissingFields(); len(fields) > 0 {
		utils.RespondWithMissingFields(w, fields)
		return
	}

	withdrawal, wallet, err := h.withdrawalService.Create(r.Context(), user, withdrawalservice.CreateInput{
		Amount:        *req.Amount,
		Currency:      req.Currency,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.WithdrawalResponseDTO{
		Message:    "Withdrawal requested",
		Wallet:     dto.NewWalletDTO(wallet),
		Withdrawal: dto.NewWithdrawalDTO(withdrawal),
	})
}

// ConfirmWithdrawal godoc
//
//	@Summary		Confirm a withdrawal
//	@Description	Settle a pending withdrawal: the reservation becomes a debit.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ConfirmWithdrawalRequestDTO	true	"Confirmation payload"
//	@Success		200		{object}	dto.WithdrawalResponseDTO
//	@Failure		404		{object}	utils.Response	"Withdrawal not found"
//	@Failure		409		{object}	utils.Response	"Withdrawal is not pending"
//	@Router			/api/withdraw/confirm [post]
func (h *WithdrawalHandler) ConfirmWithdrawal(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	var req dto.ConfirmWithdrawalRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.WithdrawalID == "" {
		utils.RespondWithMissingFields(w, []string{"withdrawalId"})
		return
	}

	withdrawal, wallet, err := h.withdrawalService.Confirm(r.Context(), user.ID, req.WithdrawalID, req.TransactionHash)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WithdrawalResponseDTO{
		Message:    "Withdrawal completed",
		Wallet:     dto.NewWalletDTO(wallet),
		Withdrawal: dto.NewWithdrawalDTO(withdrawal),
	})
}

// CancelWithdrawal godoc
//
//	@Summary		Cancel a withdrawal
//	@Description	Release the reservation of a pending withdrawal.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CancelWithdrawalRequestDTO	true	"Cancellation payload"
//	@Success		200		{object}	dto.WithdrawalResponseDTO
//	@Failure		404		{object}	utils.Response	"Withdrawal not found"
//	@Failure		409		{object}	utils.Response	"Withdrawal is not pending"
//	@Router			/api/withdraw/cancel [post]
func (h *WithdrawalHandler) CancelWithdrawal(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	var req dto.CancelWithdrawalRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.WithdrawalID == "" {
		utils.RespondWithMissingFields(w, []string{"withdrawalId"})
		return
	}

	withdrawal, wallet, err := h.withdrawalService.Cancel(r.Context(), user.ID, req.WithdrawalID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WithdrawalResponseDTO{
		Message:    "Withdrawal cancelled",
		Wallet:     dto.NewWalletDTO(wallet),
		Withdrawal: dto.NewWithdrawalDTO(withdrawal),
	})
}

// GetWithdrawals godoc
//
//	@Summary		Withdrawal history
//	@Description	Last 50 withdrawals of the authenticated user, newest first.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.WithdrawalDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/withdrawals [get]
func (h *WithdrawalHandler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	withdrawals, err := h.withdrawalService.List(r.Context(), user.ID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch withdrawals")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawalDTOs(withdrawals))
}
