package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"agrimart/internal/service/order/domain"
)

// OrderModel 是 orders 表的 GORM 模型。
// 商品与地址以 JSON 快照存储，订单建立后不随目录变化。
type OrderModel struct {
	ID                  string `gorm:"primaryKey;size:64"`
	IdempotencyKey      string `gorm:"size:64;index"`
	UserID              string `gorm:"size:64;index"`
	ItemsJSON           string `gorm:"type:text;column:items_json"`
	AddressJSON         string `gorm:"type:text;column:address_json"`
	DeliveryMethodID    int64
	PaymentMethod       string `gorm:"size:32"`
	DiscountCode        string `gorm:"size:64"`
	Subtotal            int64
	DiscountAmount      int64
	DeliveryFee         int64
	Total               int64
	ShippingUnconfirmed bool
	State               string `gorm:"size:32;index"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// GormOrderRepository 是 OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 新建或整体更新订单。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model, err := fromDomainOrder(order)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID 按订单号查找。
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return toDomainOrder(&model)
}

// UpdateState 条件更新状态，from 不匹配时报 ErrInvalidStateChange。
func (r *GormOrderRepository) UpdateState(ctx context.Context, id string, from, to domain.State) error {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND state = ?", id, string(from)).
		Updates(map[string]interface{}{"state": string(to), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidStateChange
	}
	return nil
}

func fromDomainOrder(o *domain.Order) (*OrderModel, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, err
	}
	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return nil, err
	}
	return &OrderModel{
		ID:                  o.ID,
		IdempotencyKey:      o.IdempotencyKey,
		UserID:              o.UserID,
		ItemsJSON:           string(itemsJSON),
		AddressJSON:         string(addressJSON),
		DeliveryMethodID:    o.DeliveryMethodID,
		PaymentMethod:       o.PaymentMethod,
		DiscountCode:        o.DiscountCode,
		Subtotal:            o.Subtotal,
		DiscountAmount:      o.DiscountAmount,
		DeliveryFee:         o.DeliveryFee,
		Total:               o.Total,
		ShippingUnconfirmed: o.ShippingUnconfirmed,
		State:               string(o.State),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}, nil
}

func toDomainOrder(m *OrderModel) (*domain.Order, error) {
	var items []domain.OrderItem
	if m.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err != nil {
			return nil, err
		}
	}
	var address domain.ShippingAddress
	if m.AddressJSON != "" {
		if err := json.Unmarshal([]byte(m.AddressJSON), &address); err != nil {
			return nil, err
		}
	}
	return &domain.Order{
		ID:                  m.ID,
		IdempotencyKey:      m.IdempotencyKey,
		UserID:              m.UserID,
		Items:               items,
		Address:             address,
		DeliveryMethodID:    m.DeliveryMethodID,
		PaymentMethod:       m.PaymentMethod,
		DiscountCode:        m.DiscountCode,
		Subtotal:            m.Subtotal,
		DiscountAmount:      m.DiscountAmount,
		DeliveryFee:         m.DeliveryFee,
		Total:               m.Total,
		ShippingUnconfirmed: m.ShippingUnconfirmed,
		State:               domain.State(m.State),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}, nil
}
