package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Rajput612/mandihouse-backend/api/middleware"
	"github.com/Rajput612/mandihouse-backend/api/responses"
	"github.com/Rajput612/mandihouse-backend/api/validators"
	internalorders "github.com/Rajput612/mandihouse-backend/internal/orders"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/outbox"
	"github.com/Rajput612/mandihouse-backend/pkg/pagination"
	"github.com/Rajput612/mandihouse-backend/pkg/types"
)

const maxNotesLen = 500

type submitOrderRequest struct {
	DeliveryAddress *types.Address       `json:"delivery_address" validate:"required"`
	Notes           *string              `json:"notes,omitempty"`
	Products        []submitOrderProduct `json:"products" validate:"required,min=1,max=50,dive"`
}

type submitOrderProduct struct {
	ProductID     string `json:"product_id" validate:"required"`
	Qty           string `json:"qty" validate:"required"`
	MaxPricePaise *int64 `json:"max_price_paise,omitempty"`
}

// SubmitOrder creates an order request and runs allocation for each line.
func SubmitOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req submitOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.SubmitOrderInput{
			BuyerID:         buyerID,
			DeliveryAddress: req.DeliveryAddress,
			Actor:           actorRef(r),
		}
		if req.Notes != nil {
			notes := validators.SanitizeString(*req.Notes, maxNotesLen)
			input.Notes = &notes
		}
		for _, line := range req.Products {
			qty, err := decimal.NewFromString(strings.TrimSpace(line.Qty))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "qty must be a decimal number").
					WithDetails(map[string]any{"product_id": line.ProductID}))
				return
			}
			input.Products = append(input.Products, internalorders.SubmitOrderProductInput{
				ProductID:     strings.TrimSpace(line.ProductID),
				Qty:           qty,
				MaxPricePaise: line.MaxPricePaise,
			})
		}

		order, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder returns one order with its lines and allocations.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.BuyerID != buyerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders returns the buyer's order feed with cursor pagination.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Filters.Status = &status
		}
		if from, err := queryTime(r, "date_from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if from != nil {
			params.Filters.DateFrom = from
		}
		if to, err := queryTime(r, "date_to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if to != nil {
			params.Filters.DateTo = to
		}

		list, err := svc.List(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CancelOrder cancels the order and releases every pending allocation.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorUUID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Cancel(r.Context(), orderID, actorRef(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "status": status})
	}
}

// CompleteOrder records the delivery confirmation signal.
func CompleteOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorUUID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Complete(r.Context(), orderID, actorRef(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order_id": orderID, "status": enums.OrderStatusCompleted})
	}
}

func actorUUID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "caller identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid caller id")
	}
	return id, nil
}

func actorRef(r *http.Request) *outbox.ActorRef {
	raw := middleware.UserIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{UserID: id, Role: middleware.RoleFromContext(r.Context())}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path id must be a uuid").
			WithDetails(map[string]any{"param": param})
	}
	return id, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "timestamp must be RFC3339").
			WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}
