package repository

import (
	"context"
	"fmt"

	"food-ordering-api/access"
	"food-ordering-api/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("Sender").Create(m).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", translate(err))
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var m models.Message
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// ListForUser returns messages the account sent or received, newest first,
// restricted to scope.
func (r *MessageRepository) ListForUser(ctx context.Context, userID uint, scope access.Scope) ([]models.Message, error) {
	q := inScope(r.db.WithContext(ctx), scope, "restaurant_id").
		Where("(sender_id = ? OR receiver_id = ?)", userID, userID)
	return r.find(q)
}

func (r *MessageRepository) ListByRestaurant(ctx context.Context, scope access.Scope) ([]models.Message, error) {
	return r.find(inScope(r.db.WithContext(ctx), scope, "restaurant_id"))
}

// HasParticipantAt reports whether the account sent or received any
// message of the restaurant.
func (r *MessageRepository) HasParticipantAt(ctx context.Context, userID, restaurantID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("restaurant_id = ? AND (sender_id = ? OR receiver_id = ?)", restaurantID, userID, userID).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up messages of user %d: %w", userID, err)
	}
	return n > 0, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark message %d read: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MessageRepository) find(q *gorm.DB) ([]models.Message, error) {
	var msgs []models.Message
	err := q.Preload("Sender").Order("created_at desc").Order("id desc").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
