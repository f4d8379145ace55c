// Package dbtest opens isolated sqlite databases with the full schema and
// seeds the catalog rows tests need.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// New returns a migrated in-memory database private to the test. A single
// connection keeps sqlite writers serialized, so concurrent callers queue
// behind each other like row locks would make them on Postgres.
func New(t *testing.T) *db.Client {
	t.Helper()

	dsn := "file:bazaar_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	return db.NewFromConn(conn)
}

func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:    id,
		Email: id.String() + "@bazaar.test",
		Name:  string(role) + " " + id.String()[:8],
		Role:  role,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// ProductOption tweaks a seeded product before insert.
type ProductOption func(*models.Product)

func WithStatus(status enums.ProductStatus) ProductOption {
	return func(p *models.Product) { p.Status = status }
}

func WithDiscountPrice(cents int64) ProductOption {
	return func(p *models.Product) { p.DiscountPriceCents = &cents }
}

func SeedProduct(t *testing.T, conn *gorm.DB, sellerID uuid.UUID, priceCents int64, stock int, opts ...ProductOption) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Title:      "Product " + uuid.NewString()[:8],
		Status:     enums.ProductStatusActive,
		PriceCents: priceCents,
		Stock:      stock,
	}
	for _, opt := range opts {
		opt(&product)
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

func SeedVariant(t *testing.T, conn *gorm.DB, productID uuid.UUID, priceCents *int64, stock int) models.ProductVariant {
	t.Helper()
	variant := models.ProductVariant{
		ID:         uuid.New(),
		ProductID:  productID,
		Name:       "Variant",
		SKU:        "SKU-" + uuid.NewString()[:8],
		PriceCents: priceCents,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(&variant).Error)
	return variant
}

// SeedNegotiation stores an ACCEPTED negotiation expiring in a day.
func SeedNegotiation(t *testing.T, conn *gorm.DB, buyerID uuid.UUID, product models.Product, finalPriceCents int64, granted int) models.Negotiation {
	t.Helper()
	expires := time.Now().UTC().Add(24 * time.Hour)
	neg := models.Negotiation{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		SellerID:        product.SellerID,
		ProductID:       product.ID,
		Status:          enums.NegotiationStatusAccepted,
		FinalPriceCents: &finalPriceCents,
		GrantedQuantity: granted,
		ExpiresAt:       &expires,
	}
	require.NoError(t, conn.Create(&neg).Error)
	return neg
}

func ProductStock(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, conn.First(&product, "id = ?", productID).Error)
	return product.Stock
}

func VariantStock(t *testing.T, conn *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	require.NoError(t, conn.First(&variant, "id = ?", variantID).Error)
	return variant.Stock
}
