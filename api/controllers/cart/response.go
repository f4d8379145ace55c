package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

type cartItemResponse struct {
	ID              uuid.UUID  `json:"id"`
	ProductID       uuid.UUID  `json:"product_id"`
	VariantID       *uuid.UUID `json:"variant_id,omitempty"`
	Quantity        int        `json:"quantity"`
	PriceAtAddCents int64      `json:"price_at_add_cents"`
	NegotiationID   *uuid.UUID `json:"negotiation_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func newCartItem(item *models.CartItem) *cartItemResponse {
	if item == nil {
		return nil
	}
	return &cartItemResponse{
		ID:              item.ID,
		ProductID:       item.ProductID,
		VariantID:       item.VariantID,
		Quantity:        item.Quantity,
		PriceAtAddCents: item.PriceAtAddCents,
		NegotiationID:   item.NegotiationID,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}
