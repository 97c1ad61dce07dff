package repositories

import (
	"context"

	. "drivemate/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *User) error
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*User, error)
}

type userRepository struct {
	log logger.Logger
}

func NewUserRepository() UserRepository {
	return &userRepository{
		log: logger.New("userRepository"),
	}
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *User) error {
	log := r.log.Function("Create")

	err := gorm.G[User](tx).Create(ctx, user)
	if err != nil {
		return log.Err("failed to create user", err, "email", user.Email)
	}

	return nil
}

func (r *userRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
) (*User, error) {
	log := r.log.Function("GetByID")

	user, err := gorm.G[*User](tx).
		Where(User{BaseUUIDModel: BaseUUIDModel{ID: userID}}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get user", err, "userID", userID)
	}

	return user, nil
}

func (r *userRepository) GetByEmail(
	ctx context.Context,
	tx *gorm.DB,
	email string,
) (*User, error) {
	log := r.log.Function("GetByEmail")

	user, err := gorm.G[*User](tx).
		Where("email = ?", email).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get user by email", err, "email", email)
	}

	return user, nil
}
