package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"agrimart/internal/service/payment/domain"
)

// PaymentModel 是 payment 表的 GORM 模型。
type PaymentModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	OrderRef     string `gorm:"size:64;uniqueIndex;not null"`
	Amount       int64  `gorm:"not null"`
	BankCode     string `gorm:"size:32"`
	Status       string `gorm:"size:16;not null"`
	GatewayTxnNo string `gorm:"size:64"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PaymentModel) TableName() string {
	return "payment"
}

// GormPaymentRepository 是 PaymentRepository 的 GORM 实现。
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save 新建或按订单号更新支付记录。
func (r *GormPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	var existing PaymentModel
	err := r.db.WithContext(ctx).Where("order_ref = ?", payment.OrderRef).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		model := fromDomainPayment(payment)
		if createErr := r.db.WithContext(ctx).Create(model).Error; createErr != nil {
			return createErr
		}
		payment.ID = model.ID
		return nil
	}
	if err != nil {
		return err
	}

	payment.ID = existing.ID
	return r.db.WithContext(ctx).Model(&PaymentModel{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"amount":         payment.Amount,
		"bank_code":      payment.BankCode,
		"status":         string(payment.Status),
		"gateway_txn_no": payment.GatewayTxnNo,
		"updated_at":     payment.UpdatedAt,
	}).Error
}

// FindByOrderRef 按订单号查找支付记录。
func (r *GormPaymentRepository) FindByOrderRef(ctx context.Context, orderRef string) (*domain.Payment, error) {
	var model PaymentModel
	err := r.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return toDomainPayment(&model), nil
}

func fromDomainPayment(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
		OrderRef:     p.OrderRef,
		Amount:       p.Amount,
		BankCode:     p.BankCode,
		Status:       string(p.Status),
		GatewayTxnNo: p.GatewayTxnNo,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toDomainPayment(m *PaymentModel) *domain.Payment {
	return &domain.Payment{
		ID:           m.ID,
		OrderRef:     m.OrderRef,
		Amount:       m.Amount,
		BankCode:     m.BankCode,
		Status:       domain.Status(m.Status),
		GatewayTxnNo: m.GatewayTxnNo,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
