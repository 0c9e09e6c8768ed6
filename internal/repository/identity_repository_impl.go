package repository

import (
	"context"
	"errors"

	"clinic-frontdesk/internal/domain/entity"
	domainRepo "clinic-frontdesk/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// identityColumns are the columns a merge may rewrite. national_id is
// deliberately absent.
var identityColumns = []string{
	"name", "phone", "gender", "height", "weight", "bmi",
	"blood_pressure", "personality", "work_intensity", "birth_date", "updated_at",
}

type identityRepository struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewIdentityRepository(db *gorm.DB, log *logrus.Logger) domainRepo.IdentityRepository {
	return &identityRepository{
		db:  db,
		log: log,
	}
}

func (r *identityRepository) Create(ctx context.Context, identity *entity.PatientIdentity) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Visits").Create(identity).Error; err != nil {
			return err
		}
		return r.insertPendingVisits(tx, identity)
	})
	if err != nil {
		if isDuplicateKeyError(err, constraintIdentityNationalID) {
			return domainRepo.ErrIdentityExists
		}
		return translateError(err)
	}
	return nil
}

func (r *identityRepository) Modify(ctx context.Context, nationalID string, fn func(identity *entity.PatientIdentity) error) (*entity.PatientIdentity, error) {
	var result *entity.PatientIdentity

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var identity entity.PatientIdentity
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("national_id = ?", nationalID).
			First(&identity).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		var count int64
		if err := tx.Model(&entity.VisitRecord{}).Where("patient_id = ?", identity.ID).Count(&count).Error; err != nil {
			return err
		}
		identity.HistoryLength = int(count)

		if err := fn(&identity); err != nil {
			return err
		}

		if err := tx.Model(&identity).Select(identityColumns).Updates(&identity).Error; err != nil {
			return err
		}
		if err := r.insertPendingVisits(tx, &identity); err != nil {
			return err
		}

		result = &identity
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (r *identityRepository) FindByNationalID(ctx context.Context, nationalID string, withVisits bool) (*entity.PatientIdentity, error) {
	var identity entity.PatientIdentity
	query := r.db.WithContext(ctx)
	if withVisits {
		query = query.Preload("Visits", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		})
	}

	err := query.Where("national_id = ?", nationalID).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}

	if withVisits {
		identity.HistoryLength = len(identity.Visits)
	}
	return &identity, nil
}

func (r *identityRepository) Search(ctx context.Context, term string, limit int) ([]entity.PatientIdentity, error) {
	var identities []entity.PatientIdentity
	pattern := "%" + escapeLike(term) + "%"

	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR phone ILIKE ?", pattern, pattern).
		Order("name ASC, national_id ASC").
		Limit(limit).
		Find(&identities).Error
	if err != nil {
		return nil, translateError(err)
	}
	return identities, nil
}

// Delete removes the identity; visit_records go with it through ON DELETE CASCADE.
func (r *identityRepository) Delete(ctx context.Context, nationalID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("national_id = ?", nationalID).Delete(&entity.PatientIdentity{})
	return result.RowsAffected, translateError(result.Error)
}

func (r *identityRepository) insertPendingVisits(tx *gorm.DB, identity *entity.PatientIdentity) error {
	pending := identity.PendingVisits()
	if len(pending) == 0 {
		return nil
	}

	for i := range pending {
		pending[i].PatientID = identity.ID
	}
	if err := tx.Create(&pending).Error; err != nil {
		if isDuplicateKeyError(err, constraintVisitSeq) {
			r.log.Warnf("Visit sequence collision for patient %s: %+v", identity.ID, err)
		}
		return err
	}
	return nil
}
