package models

// All lists every persisted model in dependency order. Used by AutoMigrate in
// tests and sqlite dev mode; Postgres is migrated with goose.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&ProductVariant{},
		&Negotiation{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderStatusEvent{},
		&PaymentTransaction{},
		&OrderDispute{},
		&OrderReturn{},
		&Notification{},
	}
}
