package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// UserDTO is the transport shape of an identity.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email string
	Name  string
	Role  enums.UserRole
}

func (d CreateUserDTO) validate() error {
	if strings.TrimSpace(d.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !d.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	return nil
}

// ToModel maps the DTO to a persistence model.
func (d CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email: strings.ToLower(strings.TrimSpace(d.Email)),
		Name:  strings.TrimSpace(d.Name),
		Role:  d.Role,
	}
}

// FromModel converts a user model into the transport DTO.
func FromModel(u *models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
