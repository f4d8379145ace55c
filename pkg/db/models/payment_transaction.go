package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

const PaymentTransactionStatusSucceeded = "SUCCEEDED"

// PaymentTransaction is an append-only payment ledger row. Refunds carry a
// negative amount.
type PaymentTransaction struct {
	ID          uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID                    `gorm:"column:order_id;type:uuid;not null;index"`
	UserID      uuid.UUID                    `gorm:"column:user_id;type:uuid;not null"`
	Type        enums.PaymentTransactionType `gorm:"column:type;type:text;not null"`
	AmountCents int64                        `gorm:"column:amount_cents;not null;check:chk_payment_transactions_amount_sign,(type = 'CHARGE' AND amount_cents > 0) OR (type = 'REFUND' AND amount_cents < 0)"`
	Status      string                       `gorm:"column:status;type:text;not null"`
	Method      enums.PaymentMethod          `gorm:"column:method;type:text;not null"`
	MethodRef   *string                      `gorm:"column:method_ref"`
	Reference   string                       `gorm:"column:reference;type:text;not null;uniqueIndex:idx_payment_transactions_reference"`
	Reason      *string                      `gorm:"column:reason"`
	ProcessedAt time.Time                    `gorm:"column:processed_at;not null"`
}

func (p *PaymentTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
