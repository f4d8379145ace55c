package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func TestRepositoryCreateAndLoad(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Email: "  Seller@Bazaar.Test ",
		Name:  " Ana ",
		Role:  enums.UserRoleSeller,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, "seller@bazaar.test", created.Email)
	require.Equal(t, "Ana", created.Name)

	loaded, err := repo.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleSeller, loaded.Role)

	byEmail, err := repo.FindByEmail(ctx, "seller@bazaar.test")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	dto := FromModel(loaded)
	require.Equal(t, created.ID, dto.ID)
	require.Equal(t, enums.UserRoleSeller, dto.Role)
}

func TestRepositoryCreateRejectsDuplicateEmail(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Email: "buyer@bazaar.test", Role: enums.UserRoleBuyer})
	require.NoError(t, err)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "BUYER@bazaar.test", Role: enums.UserRoleBuyer})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRepositoryCreateValidates(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())

	_, err := repo.Create(context.Background(), CreateUserDTO{Email: " ", Role: enums.UserRoleBuyer})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = repo.Create(context.Background(), CreateUserDTO{Email: "x@bazaar.test", Role: enums.UserRole("ROOT")})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRepositoryMissingUsers(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())

	_, err := repo.GetUser(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = repo.FindByEmail(context.Background(), "nobody@bazaar.test")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
