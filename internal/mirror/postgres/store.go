package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	internalerrors "github.com/drastik/donation-gateway/internal"
	"github.com/drastik/donation-gateway/internal/core/datamodel/billing"
	"github.com/drastik/donation-gateway/internal/mirror"
)

type MirrorStore struct {
	db *gorm.DB
}

func NewMirrorStore(db *gorm.DB) mirror.Store {
	return &MirrorStore{db: db}
}

func (s *MirrorStore) FindCustomerByEmail(email string) (*billing.CustomerMapping, error) {
	var mapping billing.CustomerMapping
	err := s.db.Where("email = ?", email).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// SaveCustomerMapping inserts the mapping; on a uniqueness conflict the
// existing row wins and is read back into mapping. Check-then-insert races
// therefore collapse onto one row per email.
func (s *MirrorStore) SaveCustomerMapping(mapping *billing.CustomerMapping) error {
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(mapping).Error; err != nil {
		return err
	}

	return s.db.Where("email = ?", mapping.Email).First(mapping).Error
}

func (s *MirrorStore) DeleteCustomerMapping(email string) error {
	return s.db.Where("email = ?", email).Delete(&billing.CustomerMapping{}).Error
}

func (s *MirrorStore) PlanExists(planKey string) (bool, error) {
	var count int64
	err := s.db.Model(&billing.PlanMapping{}).Where("plan_key = ?", planKey).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MirrorStore) SavePlanMapping(planKey string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_key"}},
		DoNothing: true,
	}).Create(&billing.PlanMapping{PlanKey: planKey}).Error
}

func (s *MirrorStore) FindActiveWatch(gatewayCustomerID string) (*billing.SubscriptionWatch, error) {
	var watch billing.SubscriptionWatch
	err := s.db.Where("gateway_customer_id = ?", gatewayCustomerID).First(&watch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &watch, nil
}

func (s *MirrorStore) SaveWatch(watch *billing.SubscriptionWatch) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "local_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gateway_customer_id",
			"end_time",
			"is_live",
		}),
	}).Create(watch).Error
}

func (s *MirrorStore) CancelWatch(invoiceID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Model(&billing.RecurringContribution{}).
			Where("invoice_id = ?", invoiceID).
			Updates(map[string]interface{}{
				"status":      billing.RecurringStatusCancelled,
				"cancel_date": &now,
				"updated_at":  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internalerrors.NewNotFoundError(
				"recurring contribution not found", internalerrors.ErrCodeInvoiceNotFound)
		}

		return tx.Where("local_invoice_id = ?", invoiceID).
			Delete(&billing.SubscriptionWatch{}).Error
	})
}

func (s *MirrorStore) CreateRecurringContribution(contribution *billing.RecurringContribution) error {
	return s.db.Create(contribution).Error
}

func (s *MirrorStore) FindRecurringContribution(invoiceID string) (*billing.RecurringContribution, error) {
	var contribution billing.RecurringContribution
	err := s.db.Where("invoice_id = ?", invoiceID).First(&contribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}
