package controllers

import (
	"net/http"
	"strings"

	"github.com/Rajput612/mandihouse-backend/api/responses"
	"github.com/Rajput612/mandihouse-backend/api/validators"
	"github.com/Rajput612/mandihouse-backend/internal/allocation"
	internalorders "github.com/Rajput612/mandihouse-backend/internal/orders"
	"github.com/Rajput612/mandihouse-backend/pkg/enums"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
	"github.com/Rajput612/mandihouse-backend/pkg/pagination"
)

type rejectAllocationRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// AcceptAllocation records a seller's commitment to fulfill an offer.
func AcceptAllocation(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allocationID, err := pathUUID(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decided, err := svc.Decide(r.Context(), internalorders.DecisionInput{
			AllocationID: allocationID,
			SellerID:     sellerID,
			Decision:     enums.AllocationDecisionAccept,
			Actor:        actorRef(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decided)
	}
}

// RejectAllocation declines an offer; the freed quantity is re-offered
// to other sellers.
func RejectAllocation(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allocationID, err := pathUUID(r, "allocationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req rejectAllocationRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := internalorders.DecisionInput{
			AllocationID: allocationID,
			SellerID:     sellerID,
			Decision:     enums.AllocationDecisionReject,
			Actor:        actorRef(r),
		}
		if req.Reason != nil {
			reason, err := enums.ParseRejectReason(strings.TrimSpace(*req.Reason))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reject reason"))
				return
			}
			input.Reason = &reason
		}

		decided, err := svc.Decide(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decided)
	}
}

// SellerAllocationQueue lists the caller's pending offers, most urgent
// first.
func SellerAllocationQueue(repo allocation.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		queue, err := repo.ListPendingBySeller(r.Context(), sellerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending allocations"))
			return
		}
		responses.WriteSuccess(w, queue)
	}
}
