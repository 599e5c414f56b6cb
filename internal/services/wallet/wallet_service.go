package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/creative_connect/internal/models"
	"github.com/Windi-Fikriyansyah/creative_connect/internal/services"
)

type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// CreditCreative books released escrow funds to the creative.
// It must be called inside the transaction that releases the payment.
func (s *WalletService) CreditCreative(tx *gorm.DB, userID uuid.UUID, amount int64, paymentID uuid.UUID, description string) error {
	return s.credit(tx, userID, amount, models.WalletTrxCredit, paymentID, description)
}

// CreditClient books refunded escrow funds back to the client.
// It must be called inside the transaction that refunds the payment.
func (s *WalletService) CreditClient(tx *gorm.DB, userID uuid.UUID, amount int64, paymentID uuid.UUID, description string) error {
	return s.credit(tx, userID, amount, models.WalletTrxRefund, paymentID, description)
}

func (s *WalletService) credit(tx *gorm.DB, userID uuid.UUID, amount int64, typ models.WalletTrxType, paymentID uuid.UUID, description string) error {
	if amount <= 0 {
		return errors.New("amount to credit must be greater than zero")
	}

	// 1. balance
	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user not found for id %s", userID)
	}

	// 2. ledger
	ledger := models.WalletTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        typ,
		Description: description,
		PaymentID:   &paymentID,
	}
	return tx.Create(&ledger).Error
}

type Statement struct {
	Balance      int64                      `json:"balance"`
	Transactions []models.WalletTransaction `json:"transactions"`
	Meta         services.Meta              `json:"meta"`
}

// Statement returns the user's balance and newest-first ledger lines.
func (s *WalletService) Statement(ctx context.Context, userID uuid.UUID, page services.Page) (*Statement, error) {
	page = page.Normalize(50, 200)

	var u models.User
	if err := s.DB.WithContext(ctx).Select("id", "balance").First(&u, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	out := Statement{Balance: u.Balance, Transactions: []models.WalletTransaction{}}
	if err := page.Apply(q).Order("created_at DESC").Find(&out.Transactions).Error; err != nil {
		return nil, err
	}
	out.Meta = page.Meta(total)
	return &out, nil
}
