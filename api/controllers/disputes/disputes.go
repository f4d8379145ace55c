package disputes

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internaldisputes "github.com/angelmondragon/bazaar-backend/internal/disputes"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable")
}

type openDisputeRequest struct {
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"required,notblank"`
}

type updateDisputeRequest struct {
	Status            string  `json:"status" validate:"required"`
	SellerResponse    *string `json:"seller_response"`
	Resolution        *string `json:"resolution"`
	RefundAmountCents *int64  `json:"refund_amount_cents" validate:"omitempty,gte=0"`
}

// OpenDispute lets the buyer of an order raise a dispute.
func OpenDispute(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		actorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload openDisputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.OpenDispute(r.Context(), internaldisputes.OpenDisputeInput{
			OrderID:     orderID,
			ActorID:     actorID,
			Type:        enums.DisputeType(strings.ToUpper(strings.TrimSpace(payload.Type))),
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDispute(dispute))
	}
}

func ListDisputes(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		actorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListDisputes(r.Context(), actorID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]*disputeResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newDispute(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func GetDispute(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		actorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.GetDispute(r.Context(), actorID, disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDispute(dispute))
	}
}

// UpdateDispute moves a dispute along its workflow.
func UpdateDispute(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		actorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := validators.ParseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDisputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.UpdateDispute(r.Context(), internaldisputes.UpdateDisputeInput{
			DisputeID:         disputeID,
			ActorID:           actorID,
			Status:            enums.DisputeStatus(strings.ToUpper(strings.TrimSpace(payload.Status))),
			SellerResponse:    payload.SellerResponse,
			Resolution:        payload.Resolution,
			RefundAmountCents: payload.RefundAmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDispute(dispute))
	}
}
