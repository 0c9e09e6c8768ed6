package usecase

import (
	"context"
	"errors"
	"strings"

	"clinic-frontdesk/config"
	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/domain/repository"
	"clinic-frontdesk/internal/service"
	"clinic-frontdesk/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

const patientSearchLimit = 50

// errIdentityNotVisible is returned inside the lookup retry when the row that
// rejected our insert is not readable yet.
var errIdentityNotVisible = errors.New("identity not visible yet")

type RegistrationRequest struct {
	NationalID string
	Attributes entity.IdentityAttributes
	// Visit is optional; when present it is appended to the history.
	Visit *entity.VisitRecord
}

type IdentityResult struct {
	Identity      *entity.PatientIdentity
	Created       bool
	HistoryLength int
}

type IdentityUsecase interface {
	RegisterOrUpdate(ctx context.Context, req *RegistrationRequest) (*IdentityResult, error)
	GetByNationalID(ctx context.Context, nationalID string) (*entity.PatientIdentity, error)
	History(ctx context.Context, nationalID string) ([]entity.VisitRecord, error)
	LatestVisit(ctx context.Context, nationalID string) (*entity.VisitRecord, error)
	Search(ctx context.Context, term string) ([]entity.PatientIdentity, error)
	Delete(ctx context.Context, nationalID string) error
}

type identityUsecase struct {
	log          *logrus.Logger
	identityRepo repository.IdentityRepository
	merger       *service.HistoryMerger
	metrics      *metrics.Collector
	resolverCfg  config.ResolverConfig
}

func NewIdentityUsecase(
	log *logrus.Logger,
	identityRepo repository.IdentityRepository,
	merger *service.HistoryMerger,
	collector *metrics.Collector,
	resolverCfg config.ResolverConfig,
) IdentityUsecase {
	if resolverCfg.LookupAttempts <= 0 {
		resolverCfg.LookupAttempts = 1
	}
	return &identityUsecase{
		log:          log,
		identityRepo: identityRepo,
		merger:       merger,
		metrics:      collector,
		resolverCfg:  resolverCfg,
	}
}

// RegisterOrUpdate resolves nationalID to exactly one identity, creating it
// on first sight and merging into it afterwards.
//
// Flow:
// 1. Try to create the identity together with its first visit
// 2. Unique violation on national_id means another registration owns it
// 3. Lock the existing row, merge attributes and append the visit
// 4. If the owner is not readable yet, back off and look again
func (u *identityUsecase) RegisterOrUpdate(ctx context.Context, req *RegistrationRequest) (*IdentityResult, error) {
	nationalID := strings.TrimSpace(req.NationalID)
	if nationalID == "" {
		return nil, ErrInvalidNationalID
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identity := entity.NewPatientIdentity(nationalID, req.Attributes)
	if req.Visit != nil {
		u.merger.Append(identity, *req.Visit)
	}

	err := u.identityRepo.Create(ctx, identity)
	if err == nil {
		u.metrics.Registration(metrics.OutcomeCreated)
		u.log.Infof("Patient registered: id=%s", identity.ID)
		return &IdentityResult{Identity: identity, Created: true, HistoryLength: identity.HistoryLength}, nil
	}
	if !errors.Is(err, repository.ErrIdentityExists) {
		u.log.Errorf("Failed to create patient identity: %+v", err)
		return nil, err
	}

	u.log.Debug("National ID already registered, merging into existing identity")

	merged, err := u.mergeExisting(ctx, nationalID, req)
	if err != nil {
		if errors.Is(err, errIdentityNotVisible) {
			u.log.Warnf("Identity still not visible after %d lookups", u.resolverCfg.LookupAttempts)
			return nil, ErrTransientConflict
		}
		u.log.Errorf("Failed to merge patient identity: %+v", err)
		return nil, err
	}

	u.metrics.Registration(metrics.OutcomeMerged)
	u.log.Infof("Patient updated: id=%s, history=%d", merged.ID, merged.HistoryLength)
	return &IdentityResult{Identity: merged, Created: false, HistoryLength: merged.HistoryLength}, nil
}

func (u *identityUsecase) mergeExisting(ctx context.Context, nationalID string, req *RegistrationRequest) (*entity.PatientIdentity, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.resolverCfg.LookupBackoff

	operation := func() (*entity.PatientIdentity, error) {
		identity, err := u.identityRepo.Modify(ctx, nationalID, func(identity *entity.PatientIdentity) error {
			identity.Merge(req.Attributes)
			if req.Visit != nil {
				u.merger.Append(identity, *req.Visit)
			}
			return nil
		})
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if identity == nil {
			return nil, errIdentityNotVisible
		}
		return identity, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(u.resolverCfg.LookupAttempts)),
	)
}

// GetByNationalID returns the identity with its history in display order.
func (u *identityUsecase) GetByNationalID(ctx context.Context, nationalID string) (*entity.PatientIdentity, error) {
	identity, err := u.identityRepo.FindByNationalID(ctx, nationalID, true)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return nil, err
	}
	if identity == nil {
		return nil, ErrPatientNotFound
	}

	identity.Visits = service.SortForDisplay(identity.Visits)
	return identity, nil
}

func (u *identityUsecase) History(ctx context.Context, nationalID string) ([]entity.VisitRecord, error) {
	identity, err := u.GetByNationalID(ctx, nationalID)
	if err != nil {
		return nil, err
	}
	if identity.Visits == nil {
		return []entity.VisitRecord{}, nil
	}
	return identity.Visits, nil
}

// LatestVisit returns the visit with the newest measurement date, or nil when
// the patient has no history.
func (u *identityUsecase) LatestVisit(ctx context.Context, nationalID string) (*entity.VisitRecord, error) {
	visits, err := u.History(ctx, nationalID)
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, nil
	}
	return &visits[len(visits)-1], nil
}

func (u *identityUsecase) Search(ctx context.Context, term string) ([]entity.PatientIdentity, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []entity.PatientIdentity{}, nil
	}

	identities, err := u.identityRepo.Search(ctx, term, patientSearchLimit)
	if err != nil {
		u.log.Warnf("Failed to search patients: %+v", err)
		return nil, err
	}
	return identities, nil
}

// Delete removes the identity and its whole history. Appointments that
// reference it are kept.
func (u *identityUsecase) Delete(ctx context.Context, nationalID string) error {
	affected, err := u.identityRepo.Delete(ctx, nationalID)
	if err != nil {
		u.log.Warnf("Failed to delete patient: %+v", err)
		return err
	}
	if affected == 0 {
		return ErrPatientNotFound
	}

	u.log.Info("Patient deleted")
	return nil
}
