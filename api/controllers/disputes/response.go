package disputes

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type disputeResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderID           uuid.UUID           `json:"order_id"`
	InitiatorID       uuid.UUID           `json:"initiator_id"`
	Type              enums.DisputeType   `json:"type"`
	Status            enums.DisputeStatus `json:"status"`
	Description       string              `json:"description"`
	SellerResponse    *string             `json:"seller_response,omitempty"`
	Resolution        *string             `json:"resolution,omitempty"`
	RefundAmountCents *int64              `json:"refund_amount_cents,omitempty"`
	ResolvedBy        *uuid.UUID          `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func newDispute(d *models.OrderDispute) *disputeResponse {
	if d == nil {
		return nil
	}
	return &disputeResponse{
		ID:                d.ID,
		OrderID:           d.OrderID,
		InitiatorID:       d.InitiatorID,
		Type:              d.Type,
		Status:            d.Status,
		Description:       d.Description,
		SellerResponse:    d.SellerResponse,
		Resolution:        d.Resolution,
		RefundAmountCents: d.RefundAmountCents,
		ResolvedBy:        d.ResolvedBy,
		ResolvedAt:        d.ResolvedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type returnResponse struct {
	ID                uuid.UUID          `json:"id"`
	OrderID           uuid.UUID          `json:"order_id"`
	RequesterID       uuid.UUID          `json:"requester_id"`
	Reason            enums.ReturnReason `json:"reason"`
	Details           *string            `json:"details,omitempty"`
	Status            enums.ReturnStatus `json:"status"`
	RefundAmountCents *int64             `json:"refund_amount_cents,omitempty"`
	ReviewNote        *string            `json:"review_note,omitempty"`
	ReviewedBy        *uuid.UUID         `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time         `json:"reviewed_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func newReturn(r *models.OrderReturn) *returnResponse {
	if r == nil {
		return nil
	}
	return &returnResponse{
		ID:                r.ID,
		OrderID:           r.OrderID,
		RequesterID:       r.RequesterID,
		Reason:            r.Reason,
		Details:           r.Details,
		Status:            r.Status,
		RefundAmountCents: r.RefundAmountCents,
		ReviewNote:        r.ReviewNote,
		ReviewedBy:        r.ReviewedBy,
		ReviewedAt:        r.ReviewedAt,
		CompletedAt:       r.CompletedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
