package repository

import (
	"context"
	"fmt"

	"food-ordering-api/access"
	"food-ordering-api/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Taken reports whether email or username is already used by an account
// other than exceptID (0 checks against every account).
func (r *UserRepository) Taken(ctx context.Context, email, username string, exceptID uint) (emailTaken, usernameTaken bool, err error) {
	count := func(column, value string) (bool, error) {
		var n int64
		err := r.db.WithContext(ctx).Model(&models.User{}).
			Where("id <> ? AND "+column+" = ?", exceptID, value).
			Count(&n).Error
		return n > 0, err
	}
	if email != "" {
		if emailTaken, err = count("email", email); err != nil {
			return false, false, err
		}
	}
	if username != "" {
		if usernameTaken, err = count("username", username); err != nil {
			return false, false, err
		}
	}
	return emailTaken, usernameTaken, nil
}

// FindRestaurantAdmin returns the first admin account bound to restaurantID.
func (r *UserRepository) FindRestaurantAdmin(ctx context.Context, restaurantID uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND role = ?", restaurantID, models.RoleAdmin).
		Order("id asc").
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) ListByRoles(ctx context.Context, roles []models.UserRole, scope access.Scope) ([]models.User, error) {
	var users []models.User
	q := inScope(r.db.WithContext(ctx).Where("role IN ?", roles), scope, "restaurant_id")
	if err := q.Order("id asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole, scope access.Scope) (int64, error) {
	var n int64
	q := inScope(r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role), scope, "restaurant_id")
	err := q.Count(&n).Error
	return n, err
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("failed to update user %d: %w", u.ID, translate(err))
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
