package services

import (
	"context"
	"errors"

	"food-ordering-api/access"
	"food-ordering-api/models"
	"food-ordering-api/repository"

	"go.uber.org/zap"
)

// Publisher pushes a stored message to connected clients.
type Publisher interface {
	Publish(m *models.Message)
}

type SendMessageRequest struct {
	RestaurantID *uint              `json:"restaurant_id"`
	ReceiverID   *uint              `json:"receiver_id"`
	OrderID      *uint              `json:"order_id"`
	Content      string             `json:"content" binding:"required"`
	Type         models.MessageType `json:"type"`
}

type ReplyRequest struct {
	RestaurantID *uint  `json:"restaurant_id"`
	ReceiverID   uint   `json:"receiver_id" binding:"required"`
	OrderID      *uint  `json:"order_id"`
	Content      string `json:"content" binding:"required"`
}

// MessageService is the messaging channel between customers and
// restaurants.
type MessageService struct {
	messages *repository.MessageRepository
	orders   *repository.OrderRepository
	users    *repository.UserRepository
	pub      Publisher
	log      *zap.Logger
}

func NewMessageService(messages *repository.MessageRepository, orders *repository.OrderRepository, users *repository.UserRepository, pub Publisher, log *zap.Logger) *MessageService {
	return &MessageService{messages: messages, orders: orders, users: users, pub: pub, log: log.Named("messages")}
}

// Send stores a message from the caller. The restaurant comes from the
// caller's binding, then the request, then the referenced order. Without an
// explicit receiver the restaurant's admin receives it, if there is one.
func (s *MessageService) Send(ctx context.Context, caller access.Caller, req SendMessageRequest) (*models.Message, error) {
	var restaurantID uint
	if caller.Role.TenantScoped() {
		scope, err := access.Resolve(caller, nil)
		if err != nil {
			return nil, err
		}
		restaurantID, _ = scope.TenantID()
	} else if req.RestaurantID != nil {
		restaurantID = *req.RestaurantID
	}

	if req.OrderID != nil {
		o, err := s.orders.GetByID(ctx, *req.OrderID)
		if err != nil {
			return nil, lookup(err, "order", *req.OrderID)
		}
		if caller.Is(models.RoleCustomer) && o.CustomerID != caller.AccountID {
			return nil, forbidden("order %d does not belong to you", o.ID)
		}
		switch {
		case restaurantID == 0:
			restaurantID = o.RestaurantID
		case restaurantID != o.RestaurantID:
			return nil, invalid("order %d does not belong to restaurant %d", o.ID, restaurantID)
		}
	}
	if restaurantID == 0 {
		return nil, invalid("restaurant_id or order_id is required")
	}

	receiverID := req.ReceiverID
	if receiverID != nil {
		if err := s.checkReceiver(ctx, restaurantID, *receiverID); err != nil {
			return nil, err
		}
	} else {
		admin, err := s.users.FindRestaurantAdmin(ctx, restaurantID)
		switch {
		case err == nil:
			receiverID = &admin.ID
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	return s.store(ctx, caller, restaurantID, receiverID, req.OrderID, req.Content, req.Type)
}

// Reply answers a customer from the restaurant side. The receiver is always
// explicit.
func (s *MessageService) Reply(ctx context.Context, caller access.Caller, req ReplyRequest) (*models.Message, error) {
	d := access.Authorize(caller, req.RestaurantID, access.ActionMessageReply)
	if !d.Allowed {
		return nil, d.Reason
	}
	if req.ReceiverID == 0 {
		return nil, invalid("receiver_id is required")
	}
	restaurantID, ok := d.Scope.TenantID()
	if !ok {
		return nil, invalid("restaurant_id is required")
	}
	if err := s.checkReceiver(ctx, restaurantID, req.ReceiverID); err != nil {
		return nil, err
	}
	receiver := req.ReceiverID
	return s.store(ctx, caller, restaurantID, &receiver, req.OrderID, req.Content, models.MessageReply)
}

// checkReceiver keeps explicit receivers inside the message's restaurant:
// accounts bound to it, or customers who ordered from it or already talked
// to it.
func (s *MessageService) checkReceiver(ctx context.Context, restaurantID, receiverID uint) error {
	u, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return lookup(err, "user", receiverID)
	}
	if u.RestaurantID != nil && *u.RestaurantID == restaurantID {
		return nil
	}
	if u.Role == models.RoleCustomer {
		ordered, err := s.orders.HasCustomerAt(ctx, u.ID, restaurantID)
		if err != nil {
			return err
		}
		if ordered {
			return nil
		}
		talked, err := s.messages.HasParticipantAt(ctx, u.ID, restaurantID)
		if err != nil {
			return err
		}
		if talked {
			return nil
		}
	}
	return forbidden("user %d has no relation to restaurant %d", receiverID, restaurantID)
}

func (s *MessageService) store(ctx context.Context, caller access.Caller, restaurantID uint, receiverID, orderID *uint, content string, typ models.MessageType) (*models.Message, error) {
	m, err := models.NewMessage(restaurantID, caller.AccountID, receiverID, orderID, content, typ)
	if err != nil {
		return nil, err
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("message sent",
		zap.Uint("message_id", m.ID),
		zap.Uint("restaurant_id", restaurantID),
		zap.Uint("sender_id", caller.AccountID),
		zap.String("type", string(m.Type)))
	if s.pub != nil {
		s.pub.Publish(m)
	}
	return m, nil
}

// ForUser lists the messages a user sent or received. Customers only see
// their own; restaurant roles see the user's messages with their restaurant.
func (s *MessageService) ForUser(ctx context.Context, caller access.Caller, userID uint) ([]models.Message, error) {
	scope := access.Unrestricted()
	if !caller.IsSuperAdmin() && caller.AccountID != userID {
		if !caller.Role.TenantScoped() {
			return nil, forbidden("cannot read another account's messages")
		}
		var err error
		if scope, err = access.Resolve(caller, nil); err != nil {
			return nil, err
		}
	}
	return s.messages.ListForUser(ctx, userID, scope)
}

// ForRestaurant lists every message of a restaurant.
func (s *MessageService) ForRestaurant(ctx context.Context, caller access.Caller, restaurantID uint) ([]models.Message, error) {
	d := access.Authorize(caller, &restaurantID, access.ActionMessageTenant)
	if !d.Allowed {
		return nil, d.Reason
	}
	return s.messages.ListByRestaurant(ctx, d.Scope)
}

// MarkRead flags a message as read. The receiver or the restaurant's staff
// may do so.
func (s *MessageService) MarkRead(ctx context.Context, caller access.Caller, id uint) (*models.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "message", id)
	}
	isReceiver := m.ReceiverID != nil && *m.ReceiverID == caller.AccountID
	if !isReceiver {
		if !caller.Role.TenantScoped() && !caller.IsSuperAdmin() {
			return nil, forbidden("message %d is not addressed to you", id)
		}
		if err := access.Owns(caller, m.RestaurantID); err != nil {
			return nil, err
		}
	}
	if err := s.messages.MarkRead(ctx, id); err != nil {
		return nil, lookup(err, "message", id)
	}
	m.IsRead = true
	return m, nil
}
