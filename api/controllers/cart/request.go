package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/bazaar-backend/internal/cart"
)

type addItemRequest struct {
	ProductID     uuid.UUID  `json:"product_id" validate:"required"`
	VariantID     *uuid.UUID `json:"variant_id"`
	Quantity      int        `json:"quantity" validate:"required,gt=0"`
	NegotiationID *uuid.UUID `json:"negotiation_id"`
}

func (r addItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ProductID:     r.ProductID,
		VariantID:     r.VariantID,
		Quantity:      r.Quantity,
		NegotiationID: r.NegotiationID,
	}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}
