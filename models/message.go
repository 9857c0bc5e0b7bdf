package models

import (
	"strings"
	"time"
)

type MessageType string

const (
	MessageDelayReport MessageType = "delay_report"
	MessageFeedback    MessageType = "feedback"
	MessageGeneral     MessageType = "general"
	MessageReply       MessageType = "reply"
)

type Message struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	SenderID     uint        `json:"sender_id" gorm:"not null;index" validate:"required"`
	Sender       *User       `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	ReceiverID   *uint       `json:"receiver_id,omitempty" gorm:"index"`
	RestaurantID uint        `json:"restaurant_id" gorm:"not null;index" validate:"required"`
	OrderID      *uint       `json:"order_id,omitempty" gorm:"index"`
	Content      string      `json:"content" gorm:"not null" validate:"required"`
	Type         MessageType `json:"type" gorm:"not null;default:'general'" validate:"oneof=delay_report feedback general reply"`
	IsRead       bool        `json:"is_read" gorm:"default:false"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func NewMessage(restaurantID, senderID uint, receiverID, orderID *uint, content string, typ MessageType) (*Message, error) {
	if typ == "" {
		typ = MessageGeneral
	}
	m := &Message{
		RestaurantID: restaurantID,
		SenderID:     senderID,
		ReceiverID:   receiverID,
		OrderID:      orderID,
		Content:      strings.TrimSpace(content),
		Type:         typ,
	}
	if err := check(m); err != nil {
		return nil, err
	}
	return m, nil
}
