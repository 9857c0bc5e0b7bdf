package services

import (
	"context"
	"errors"
	"strings"

	"food-ordering-api/access"
	"food-ordering-api/models"
	"food-ordering-api/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminAccountRequest is the optional first admin bundled with a new
// restaurant.
type AdminAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type CreateRestaurantRequest struct {
	Name        string               `json:"name" binding:"required"`
	Address     string               `json:"address" binding:"required"`
	Phone       string               `json:"phone" binding:"required"`
	Image       string               `json:"image"`
	Description string               `json:"description"`
	Admin       *AdminAccountRequest `json:"admin"`
}

type UpdateRestaurantRequest struct {
	Name        *string  `json:"name"`
	Address     *string  `json:"address"`
	Phone       *string  `json:"phone"`
	Image       *string  `json:"image"`
	Description *string  `json:"description"`
	Rating      *float64 `json:"rating"`
}

// TenantService is the restaurant directory.
type TenantService struct {
	db          *gorm.DB
	restaurants *repository.RestaurantRepository
	users       *repository.UserRepository
	creds       CredentialVerifier
	log         *zap.Logger
}

func NewTenantService(db *gorm.DB, creds CredentialVerifier, log *zap.Logger) *TenantService {
	return &TenantService{
		db:          db,
		restaurants: repository.NewRestaurantRepository(db),
		users:       repository.NewUserRepository(db),
		creds:       creds,
		log:         log.Named("tenants"),
	}
}

// List is public.
func (s *TenantService) List(ctx context.Context) ([]models.Restaurant, error) {
	return s.restaurants.List(ctx)
}

func (s *TenantService) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	r, err := s.restaurants.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "restaurant", id)
	}
	return r, nil
}

// Mine returns the restaurant the caller is bound to.
func (s *TenantService) Mine(ctx context.Context, caller access.Caller) (*models.Restaurant, error) {
	d := access.Authorize(caller, nil, access.ActionTenantView)
	if !d.Allowed {
		return nil, d.Reason
	}
	id, _ := d.Scope.TenantID()
	return s.Get(ctx, id)
}

// Create stores a restaurant and, when req.Admin is set, its first admin
// account. Both rows commit together or not at all.
func (s *TenantService) Create(ctx context.Context, caller access.Caller, req CreateRestaurantRequest) (*models.Restaurant, *models.User, error) {
	if d := access.Authorize(caller, nil, access.ActionTenantManage); !d.Allowed {
		return nil, nil, d.Reason
	}
	rest, err := models.NewRestaurant(req.Name, req.Address, req.Phone, req.Image, req.Description)
	if err != nil {
		return nil, nil, err
	}

	var admin *models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.restaurants.WithTx(tx).Create(ctx, rest); err != nil {
			return err
		}
		if req.Admin == nil {
			return nil
		}

		users := s.users.WithTx(tx)
		username := strings.TrimSpace(req.Admin.Username)
		if username == "" {
			username = strings.ToLower(strings.ReplaceAll(rest.Name, " ", "")) + "_admin"
		}
		email := strings.ToLower(strings.TrimSpace(req.Admin.Email))
		if err := ensureAvailable(ctx, users, email, username, 0); err != nil {
			return err
		}
		if len(req.Admin.Password) < MinPasswordLength {
			return invalid("admin password must be at least %d characters", MinPasswordLength)
		}
		hash, err := s.creds.Hash(req.Admin.Password)
		if err != nil {
			return err
		}
		u, err := models.NewAccount(username, email, hash, models.RoleAdmin, &rest.ID)
		if err != nil {
			return err
		}
		if err := users.Create(ctx, u); err != nil {
			return duplicateAccount(err)
		}
		admin = u
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	fields := []zap.Field{zap.Uint("restaurant_id", rest.ID), zap.Uint("by", caller.AccountID)}
	if admin != nil {
		fields = append(fields, zap.Uint("admin_id", admin.ID))
	}
	s.log.Info("restaurant created", fields...)
	return rest, admin, nil
}

func (s *TenantService) Update(ctx context.Context, caller access.Caller, id uint, req UpdateRestaurantRequest) (*models.Restaurant, error) {
	if d := access.Authorize(caller, nil, access.ActionTenantManage); !d.Allowed {
		return nil, d.Reason
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		r.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		r.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		r.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Image != nil {
		r.Image = *req.Image
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.Rating != nil {
		r.Rating = *req.Rating
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.restaurants.Update(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("restaurant updated", zap.Uint("restaurant_id", id), zap.Uint("by", caller.AccountID))
	return r, nil
}

// Delete removes the restaurant row only. Foods, orders and accounts that
// reference it are left in place.
func (s *TenantService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	if d := access.Authorize(caller, nil, access.ActionTenantManage); !d.Allowed {
		return d.Reason
	}
	if err := s.restaurants.Delete(ctx, id); err != nil {
		return lookup(err, "restaurant", id)
	}
	s.log.Warn("restaurant deleted; dependent records are not removed",
		zap.Uint("restaurant_id", id), zap.Uint("by", caller.AccountID))
	return nil
}

// ensureAvailable fails with ErrConflict when email or username is used by
// an account other than exceptID.
func ensureAvailable(ctx context.Context, users *repository.UserRepository, email, username string, exceptID uint) error {
	emailTaken, usernameTaken, err := users.Taken(ctx, email, username, exceptID)
	if err != nil {
		return err
	}
	switch {
	case emailTaken:
		return conflict("email %s is already registered", email)
	case usernameTaken:
		return conflict("username %s is already taken", username)
	}
	return nil
}

// duplicateAccount covers the race between ensureAvailable and the insert.
func duplicateAccount(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return conflict("email or username is already registered")
	}
	return err
}
