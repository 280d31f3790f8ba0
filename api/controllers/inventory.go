package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Rajput612/mandihouse-backend/api/responses"
	"github.com/Rajput612/mandihouse-backend/api/validators"
	"github.com/Rajput612/mandihouse-backend/internal/ledger"
	"github.com/Rajput612/mandihouse-backend/pkg/db/models"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type upsertStockRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	AvailableQty   string `json:"available_qty" validate:"required"`
	UnitPricePaise int64  `json:"unit_price_paise" validate:"required,min=1"`
}

// UpsertStock posts a seller's available quantity and asking price for
// one commodity.
func UpsertStock(runner txRunner, svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req upsertStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := decimal.NewFromString(strings.TrimSpace(req.AvailableQty))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "available_qty must be a decimal number"))
			return
		}

		var record *models.InventoryRecord
		err = runner.WithTx(r.Context(), func(tx *gorm.DB) error {
			record, err = svc.SetStock(r.Context(), tx, ledger.SetStockInput{
				SellerID:       sellerID,
				ProductID:      strings.TrimSpace(req.ProductID),
				AvailableQty:   qty,
				UnitPricePaise: req.UnitPricePaise,
				Actor:          actorRef(r),
			})
			return err
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
