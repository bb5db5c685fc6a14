package wallet

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/fundsledger/internal/domain"
	"github.com/GlebRadaev/fundsledger/internal/dto"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/GlebRadaev/fundsledger/pkg/utils"
)

//go:generate mockgen -destination=mock_wallet.go -package=wallet . Service

type Service interface {
	GetOrCreate(ctx context.Context, userID, currency string) (*domain.Wallet, error)
}

type WalletHandler struct {
	walletService Service
}

func New(walletService Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet godoc
//
//	@Summary		Get wallet
//	@Description	Return the wallet of the authenticated user, creating it with the welcome bonus on first access.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.WalletResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(w, r)
	if !ok {
		return
	}
	wallet, err := h.walletService.GetOrCreate(r.Context(), user.ID, user.Currency)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWalletDTO(wallet))
}
