package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/dto"
	"github.com/GlebRadaev/fundsledger/internal/ledger"
	"github.com/GlebRadaev/fundsledger/internal/service/depositservice"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/GlebRadaev/fundsledger/pkg/utils"
)

//go:generate mockgen -destination=mock_deposit.go -package=deposit . Service

type Service interface {
	Create(ctx context.Context, user *domain.User, in depositservice.CreateInput) (*domain.Deposit, error)
	Confirm(ctx context.Context, userID, depositID, txHash string) (*domain.Deposit, *domain.Wallet, error)
	Cancel(ctx context.Context, userID, depositID string) (*domain.Deposit, error)
	List(ctx context.Context, userID string) ([]domain.Deposit, error)
}

type DepositHandler struct {
	depositService Service
}

func New(depositService Service) *DepositHandler {
	return &DepositHandler{
		depositService: depositService,
	}
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive with at most two decimal places")
	case errors.Is(err, depositservice.ErrDepositNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "NOT_FOUND", "Deposit not found")
	case errors.Is(err, depositservice.ErrDepositNotPending):
		utils.RespondWithError(w, http.StatusConflict, "DEPOSIT_NOT_PENDING", "Deposit is not pending")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// CreateDeposit godoc
//
//	@Summary		Initiate a deposit
//	@Description	Record a pending deposit for the authenticated user.
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CreateDepositRequestDTO	true	"Deposit payload"
//	@Success		201		{object}	dto.DepositResponseDTO
//	@Failure		400		{object}	utils.Response	"Missing fields or invalid amount"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/deposit [post]
func (h *DepositHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	var req dto.CreateDepositRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if fields := req.MissingFields(); len(fields) > 0 {
		utils.RespondWithMissingFields(w, fields)
		return
	}

	deposit, err := h.depositService.Create(r.Context(), user, depositservice.CreateInput{
		Amount:         *req.Amount,
		Currency:       req.Currency,
		CryptoAmount:   *req.CryptoAmount,
		CryptoCurrency: req.CryptoCurrency,
		WalletAddress:  req.WalletAddress,
		DepositMethod:  req.DepositMethod,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.DepositResponseDTO{
		Message: "Deposit initiated",
		Deposit: dto.NewDepositDTO(deposit),
	})
}

// ConfirmDeposit godoc
//
//	@Summary		Confirm a deposit
//	@Description	Mark a pending deposit completed and credit the wallet in one transaction.
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ConfirmDepositRequestDTO	true	"Confirmation payload"
//	@Success		200		{object}	dto.ConfirmDepositResponseDTO
//	@Failure		400		{object}	utils.Response	"Missing deposit id"
//	@Failure		404		{object}	utils.Response	"Deposit not found"
//	@Failure		409		{object}	utils.Response	"Deposit is not pending"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/deposit/confirm [post]
func (h *DepositHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	var req dto.ConfirmDepositRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.DepositID == "" {
		utils.RespondWithMissingFields(w, []string{"depositId"})
		return
	}

	deposit, wallet, err := h.depositService.Confirm(r.Context(), user.ID, req.DepositID, req.TransactionHash)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ConfirmDepositResponseDTO{
		Message: "Deposit confirmed",
		Wallet:  dto.NewWalletDTO(wallet),
		Deposit: dto.NewDepositDTO(deposit),
	})
}

// CancelDeposit godoc
//
//	@Summary		Cancel a deposit
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CancelDepositRequestDTO	true	"Cancellation payload"
//	@Success		200		{object}	dto.DepositResponseDTO
//	@Failure		404		{object}	utils.Response	"Deposit not found"
//	@Failure		409		{object}	utils.Response	"Deposit is not pending"
//	@Router			/api/deposit/cancel [post]
func (h *DepositHandler) CancelDeposit(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	var req dto.CancelDepositRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.DepositID == "" {
		utils.RespondWithMissingFields(w, []string{"depositId"})
		return
	}

	deposit, err := h.depositService.Cancel(r.Context(), user.ID, req.DepositID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.DepositResponseDTO{
		Message: "Deposit cancelled",
		Deposit: dto.NewDepositDTO(deposit),
	})
}

// GetDeposits godoc
//
//	@Summary		Deposit history
//	@Description	Last 50 deposits of the authenticated user, newest first.
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.DepositDTO
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/deposits [get]
func (h *DepositHandler) GetDeposits(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	deposits, err := h.depositService.List(r.Context(), user.ID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch deposits")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewDepositDTOs(deposits))
}
