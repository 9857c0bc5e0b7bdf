package models

import (
	"fmt"
	"time"
)

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPending          OrderStatus = "Pending"
	StatusAccepted         OrderStatus = "Accepted"
	StatusPreparing        OrderStatus = "Preparing"
	StatusReady            OrderStatus = "Ready"
	StatusHandedToDelivery OrderStatus = "Handed to Delivery"
	StatusDelivered        OrderStatus = "Delivered"
	StatusRejected         OrderStatus = "Rejected"
	StatusCancelled        OrderStatus = "Cancelled"
)

var AllStatuses = []OrderStatus{
	StatusPending, StatusAccepted, StatusPreparing, StatusReady,
	StatusHandedToDelivery, StatusDelivered, StatusRejected, StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusRejected || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "Cash on Delivery"
	PaymentCreditCard     PaymentMethod = "Credit Card"
	PaymentDebitCard      PaymentMethod = "Debit Card"
	PaymentMobileMoney    PaymentMethod = "Mobile Money"
	PaymentEVCPlus        PaymentMethod = "EVC-PLUS"
	PaymentSahal          PaymentMethod = "SAHAL"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

const DefaultAddress = "Mogadishu, Somalia"

type Order struct {
	ID              uint                 `json:"id" gorm:"primaryKey"`
	CustomerID      uint                 `json:"customer_id" gorm:"not null;index" validate:"required"`
	Customer        *User                `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID    uint                 `json:"restaurant_id" gorm:"not null;index" validate:"required"`
	Restaurant      *Restaurant          `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	Items           []OrderItem          `json:"items" gorm:"foreignKey:OrderID" validate:"required,min=1,dive"`
	TotalAmount     float64              `json:"total_amount" gorm:"not null" validate:"gte=0"`
	DeliveryFee     float64              `json:"delivery_fee" gorm:"default:5" validate:"gte=0"`
	PaymentMethod   PaymentMethod        `json:"payment_method" gorm:"not null" validate:"oneof='Cash on Delivery' 'Credit Card' 'Debit Card' 'Mobile Money' 'EVC-PLUS' 'SAHAL'"`
	PaymentStatus   PaymentStatus        `json:"payment_status" gorm:"not null" validate:"oneof=Pending Paid Failed"`
	Address         string               `json:"address"`
	Status          OrderStatus          `json:"status" gorm:"not null;default:'Pending';index"`
	StaffID         *uint                `json:"staff_id,omitempty" gorm:"index"`
	Staff           *User                `json:"staff,omitempty" gorm:"foreignKey:StaffID"`
	DeliveryID      *uint                `json:"delivery_id,omitempty" gorm:"index"`
	Delivery        *User                `json:"delivery,omitempty" gorm:"foreignKey:DeliveryID"`
	RejectionReason string               `json:"rejection_reason"`
	DeliveryRating  *int                 `json:"delivery_rating,omitempty"`
	DeliveryReview  string               `json:"delivery_review,omitempty"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// OrderItem is a snapshot of a food at the time the order was placed. FoodID
// is kept for reporting only; nothing reads the live food through it.
type OrderItem struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	OrderID     uint    `json:"order_id" gorm:"not null;index"`
	FoodID      uint    `json:"food_id" gorm:"not null" validate:"required"`
	Name        string  `json:"name" gorm:"not null" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" gorm:"not null" validate:"gte=0"`
	Quantity    int     `json:"quantity" gorm:"not null" validate:"gte=1"`
	Image       string  `json:"image"`
	Size        string  `json:"size"`
}

// SnapshotItem copies the sellable attributes of f into a line item.
func SnapshotItem(f *Food, quantity int) OrderItem {
	return OrderItem{
		FoodID:      f.ID,
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Quantity:    quantity,
		Image:       f.Image,
		Size:        f.Size,
	}
}

// NewOrder builds a Pending order from line items. The total is the sum of
// the line items plus the delivery fee.
func NewOrder(customerID, restaurantID uint, items []OrderItem, deliveryFee float64, method PaymentMethod, address string) (*Order, error) {
	if method == "" {
		method = PaymentCashOnDelivery
	}
	if address == "" {
		address = DefaultAddress
	}
	o := &Order{
		CustomerID:    customerID,
		RestaurantID:  restaurantID,
		Items:         items,
		DeliveryFee:   deliveryFee,
		PaymentMethod: method,
		PaymentStatus: PaymentPending,
		Address:       address,
		Status:        StatusPending,
	}
	o.TotalAmount = o.Subtotal() + deliveryFee
	if err := check(o); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Order) Subtotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// Rate records the customer's delivery rating.
func (o *Order) Rate(rating int, review string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalid)
	}
	o.DeliveryRating = &rating
	o.DeliveryReview = review
	return nil
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
