package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-ordering-api/access"
	"food-ordering-api/models"
	"food-ordering-api/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// ErrBadCredentials is returned by Login for an unknown email or a wrong
// password. It matches ErrUnauthenticated.
var ErrBadCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)

// CredentialVerifier hashes and checks passwords.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// BcryptVerifier is the default CredentialVerifier.
type BcryptVerifier struct {
	Cost int
}

func (b BcryptVerifier) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (BcryptVerifier) Verify(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone_number"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone_number"`
	ProfileImage *string `json:"profile_image"`
	Password     *string `json:"password"`
}

type CreateStaffRequest struct {
	Username     string          `json:"username" binding:"required,min=3"`
	Email        string          `json:"email" binding:"required,email"`
	Password     string          `json:"password" binding:"required,min=6"`
	Phone        string          `json:"phone_number"`
	Role         models.UserRole `json:"role"`
	RestaurantID *uint           `json:"restaurant_id"`
}

// AccountService is the identity registry.
type AccountService struct {
	users *repository.UserRepository
	creds CredentialVerifier
	log   *zap.Logger
}

func NewAccountService(users *repository.UserRepository, creds CredentialVerifier, log *zap.Logger) *AccountService {
	return &AccountService{users: users, creds: creds, log: log.Named("accounts")}
}

// Register creates a customer account. Other roles are never created here.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	return s.create(ctx, req.Username, req.Email, req.Password, req.Phone, models.RoleCustomer, nil)
}

// Login verifies the credentials and returns the account.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.creds.Verify(u.PasswordHash, req.Password); err != nil {
		return nil, ErrBadCredentials
	}
	s.log.Info("login", zap.Uint("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Identify resolves an account id into the caller triple used by every
// guarded operation.
func (s *AccountService) Identify(ctx context.Context, id uint) (access.Caller, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return access.Caller{}, fmt.Errorf("%w: unknown account %d", ErrUnauthenticated, id)
	}
	if err != nil {
		return access.Caller{}, err
	}
	if u.Role.TenantScoped() && u.RestaurantID == nil {
		s.log.Warn("account has a restaurant role but no restaurant", zap.Uint("user_id", u.ID), zap.String("role", string(u.Role)))
	}
	return access.Caller{AccountID: u.ID, Role: u.Role, RestaurantID: u.RestaurantID}, nil
}

// Profile returns an account to itself or to a super-admin.
func (s *AccountService) Profile(ctx context.Context, caller access.Caller, id uint) (*models.User, error) {
	if caller.AccountID != id && !caller.IsSuperAdmin() {
		return nil, forbidden("cannot view another account's profile")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "user", id)
	}
	return u, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, caller access.Caller, id uint, req UpdateProfileRequest) (*models.User, error) {
	u, err := s.Profile(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	var email, username string
	if req.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*req.Email))
		u.Email = email
	}
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
		u.Username = username
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.ProfileImage != nil {
		u.ProfileImage = *req.ProfileImage
	}
	if req.Password != nil {
		if len(*req.Password) < MinPasswordLength {
			return nil, invalid("password must be at least %d characters", MinPasswordLength)
		}
		if u.PasswordHash, err = s.creds.Hash(*req.Password); err != nil {
			return nil, err
		}
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := ensureAvailable(ctx, s.users, email, username, u.ID); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, duplicateAccount(err)
	}
	s.log.Info("profile updated", zap.Uint("user_id", u.ID), zap.Uint("by", caller.AccountID))
	return u, nil
}

// CreateStaff adds a staff or delivery account to the caller's restaurant.
// Only a super-admin may create restaurant admins or pick the restaurant.
func (s *AccountService) CreateStaff(ctx context.Context, caller access.Caller, req CreateStaffRequest) (*models.User, error) {
	d := access.Authorize(caller, req.RestaurantID, access.ActionStaffManage)
	if !d.Allowed {
		return nil, d.Reason
	}
	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}
	switch role {
	case models.RoleStaff, models.RoleDelivery:
	case models.RoleAdmin:
		if !caller.IsSuperAdmin() {
			return nil, forbidden("only a super-admin can create restaurant admins")
		}
	default:
		return nil, invalid("role must be one of staff, delivery or admin")
	}
	restaurantID, ok := d.Scope.TenantID()
	if !ok {
		return nil, invalid("restaurant_id is required")
	}

	u, err := s.create(ctx, req.Username, req.Email, req.Password, req.Phone, role, &restaurantID)
	if err != nil {
		return nil, err
	}
	s.log.Info("staff account created",
		zap.Uint("user_id", u.ID), zap.String("role", string(role)),
		zap.Uint("restaurant_id", restaurantID), zap.Uint("by", caller.AccountID))
	return u, nil
}

// ListStaff lists the staff, delivery and admin accounts in scope,
// optionally narrowed to one role.
func (s *AccountService) ListStaff(ctx context.Context, caller access.Caller, requested *uint, role models.UserRole) ([]models.User, error) {
	d := access.Authorize(caller, requested, access.ActionStaffManage)
	if !d.Allowed {
		return nil, d.Reason
	}
	roles := []models.UserRole{models.RoleStaff, models.RoleDelivery, models.RoleAdmin}
	if role != "" {
		if !role.TenantScoped() {
			return nil, invalid("role must be one of staff, delivery or admin")
		}
		roles = []models.UserRole{role}
	}
	return s.users.ListByRoles(ctx, roles, d.Scope)
}

func (s *AccountService) DeleteStaff(ctx context.Context, caller access.Caller, id uint) error {
	d := access.Authorize(caller, nil, access.ActionStaffManage)
	if !d.Allowed {
		return d.Reason
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return lookup(err, "user", id)
	}
	switch {
	case u.Role == models.RoleStaff || u.Role == models.RoleDelivery:
	case u.Role == models.RoleAdmin && caller.IsSuperAdmin():
	default:
		return forbidden("cannot delete a %s account", u.Role)
	}
	if u.RestaurantID == nil || !d.Scope.Allows(*u.RestaurantID) {
		return forbidden("user %d belongs to another restaurant", id)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return lookup(err, "user", id)
	}
	s.log.Info("staff account deleted", zap.Uint("user_id", id), zap.Uint("by", caller.AccountID))
	return nil
}

// SeedSuperAdmin creates a super-admin account. It is only reachable from
// the command line.
func (s *AccountService) SeedSuperAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	u, err := s.create(ctx, username, email, password, "", models.RoleSuperAdmin, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info("super-admin created", zap.Uint("user_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

func (s *AccountService) create(ctx context.Context, username, email, password, phone string, role models.UserRole, restaurantID *uint) (*models.User, error) {
	if len(password) < MinPasswordLength {
		return nil, invalid("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := s.creds.Hash(password)
	if err != nil {
		return nil, err
	}
	u, err := models.NewAccount(username, email, hash, role, restaurantID)
	if err != nil {
		return nil, err
	}
	u.Phone = strings.TrimSpace(phone)
	if err := ensureAvailable(ctx, s.users, u.Email, u.Username, 0); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, duplicateAccount(err)
	}
	return u, nil
}
