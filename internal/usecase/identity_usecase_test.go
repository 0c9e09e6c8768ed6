package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clinic-frontdesk/config"
	"clinic-frontdesk/internal/domain/entity"
	"clinic-frontdesk/internal/domain/repository"
	"clinic-frontdesk/internal/service"
	"clinic-frontdesk/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTestIdentityUsecase(repo *memIdentityRepository) (IdentityUsecase, *metrics.Collector) {
	collector := metrics.NewCollector("test")
	uc := NewIdentityUsecase(newTestLogger(), repo, service.NewHistoryMerger(), collector, config.ResolverConfig{
		LookupAttempts: 3,
		LookupBackoff:  time.Millisecond,
	})
	return uc, collector
}

func registration(nationalID string, attrs entity.IdentityAttributes, memo string) *RegistrationRequest {
	return &RegistrationRequest{
		NationalID: nationalID,
		Attributes: attrs,
		Visit: &entity.VisitRecord{
			PulseWave: entity.PulseWave{"heartRate": 70},
			Memo:      memo,
		},
	}
}

func TestIdentityUsecase_FirstRegistrationCreates(t *testing.T) {
	repo := newMemIdentityRepository()
	uc, collector := newTestIdentityUsecase(repo)

	result, err := uc.RegisterOrUpdate(context.Background(), registration("900101-1234567", entity.IdentityAttributes{
		Name:   ptr("Kim"),
		Height: ptr(170.0),
		Weight: ptr(68.0),
	}, "first"))

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 1, result.HistoryLength)
	require.NotNil(t, result.Identity.BMI)
	assert.InDelta(t, 23.5, *result.Identity.BMI, 0.05)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RegistrationsTotal.WithLabelValues(metrics.OutcomeCreated)))
}

func TestIdentityUsecase_SecondRegistrationMerges(t *testing.T) {
	repo := newMemIdentityRepository()
	uc, collector := newTestIdentityUsecase(repo)
	ctx := context.Background()

	_, err := uc.RegisterOrUpdate(ctx, registration("X", entity.IdentityAttributes{
		Name:   ptr("A"),
		Phone:  ptr("1"),
		Height: ptr(170.0),
		Weight: ptr(68.0),
	}, "first"))
	require.NoError(t, err)

	result, err := uc.RegisterOrUpdate(ctx, registration("X", entity.IdentityAttributes{
		Weight:        ptr(70.0),
		WorkIntensity: ptr("high"),
	}, "second"))

	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, 2, result.HistoryLength)

	identity := result.Identity
	assert.Equal(t, "A", *identity.Name)
	assert.Equal(t, "1", *identity.Phone)
	assert.Equal(t, "high", *identity.WorkIntensity)
	assert.Equal(t, 170.0, *identity.Height)
	require.NotNil(t, identity.BMI)
	assert.InDelta(t, 24.2, *identity.BMI, 0.05)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RegistrationsTotal.WithLabelValues(metrics.OutcomeMerged)))
}

func TestIdentityUsecase_HistoryIsAppendOnly(t *testing.T) {
	repo := newMemIdentityRepository()
	uc, _ := newTestIdentityUsecase(repo)
	ctx := context.Background()

	for _, memo := range []string{"one", "two", "three"} {
		_, err := uc.RegisterOrUpdate(ctx, registration("X", entity.IdentityAttributes{}, memo))
		require.NoError(t, err)
	}

	visits, err := uc.History(ctx, "X")
	require.NoError(t, err)
	require.Len(t, visits, 3)
	for i, memo := range []string{"one", "two", "three"} {
		assert.Equal(t, i+1, visits[i].Seq)
		assert.Equal(t, memo, visits[i].Memo)
		assert.Equal(t, 70.0, visits[i].PulseWave["HR"])
	}
}

func TestIdentityUsecase_ConcurrentRegistrationsConverge(t *testing.T) {
	repo := newMemIdentityRepository()
	uc, _ := newTestIdentityUsecase(repo)

	const workers = 20
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := uc.RegisterOrUpdate(context.Background(), registration("X", entity.IdentityAttributes{Name: ptr("A")}, "visit"))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, 1, repo.count())

	visits, err := uc.History(context.Background(), "X")
	require.NoError(t, err)
	require.Len(t, visits, workers)

	seqs := make(map[int]bool, workers)
	for _, v := range visits {
		seqs[v.Seq] = true
	}
	for seq := 1; seq <= workers; seq++ {
		assert.True(t, seqs[seq], "missing seq %d", seq)
	}
}

func TestIdentityUsecase_RegistrationWithoutVisit(t *testing.T) {
	repo := newMemIdentityRepository()
	uc, _ := newTestIdentityUsecase(repo)

	result, err := uc.RegisterOrUpdate(context.Background(), &RegistrationRequest{
		NationalID: "X",
		Attributes: entity.IdentityAttributes{Name: ptr("A")},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.HistoryLength)

	latest, err := uc.LatestVisit(context.Background(), "X")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestIdentityUsecase_InvisibleOwnerIsTransientConflict(t *testing.T) {
	repo := newMemIdentityRepository()
	repo.CreateFunc = func(ctx context.Context, identity *entity.PatientIdentity) error {
		return repository.ErrIdentityExists
	}
	repo.ModifyFunc = func(ctx context.Context, nationalID string, fn func(identity *entity.PatientIdentity) error) (*entity.PatientIdentity, error) {
		return nil, nil
	}
	uc, _ := newTestIdentityUsecase(repo)

	_, err := uc.RegisterOrUpdate(context.Background(), registration("X", entity.IdentityAttributes{}, "visit"))

	assert.ErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, int32(3), atomic.LoadInt32(&repo.ModifyCallCount))
}

func TestIdentityUsecase_OwnerBecomesVisibleDuringBackoff(t *testing.T) {
	repo := newMemIdentityRepository()
	repo.CreateFunc = func(ctx context.Context, identity *entity.PatientIdentity) error {
		return repository.ErrIdentityExists
	}
	var lookups atomic.Int32
	repo.ModifyFunc = func(ctx context.Context, nationalID string, fn func(identity *entity.PatientIdentity) error) (*entity.PatientIdentity, error) {
		if lookups.Add(1) < 2 {
			return nil, nil
		}
		identity := &entity.PatientIdentity{NationalID: nationalID, HistoryLength: 4}
		if err := fn(identity); err != nil {
			return nil, err
		}
		return identity, nil
	}
	uc, _ := newTestIdentityUsecase(repo)

	result, err := uc.RegisterOrUpdate(context.Background(), registration("X", entity.IdentityAttributes{}, "visit"))

	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, 5, result.HistoryLength)
	assert.Equal(t, 5, result.Identity.Visits[0].Seq)
}

func TestIdentityUsecase_StorageErrorIsNotRetried(t *testing.T) {
	repo := newMemIdentityRepository()
	repo.CreateFunc = func(ctx context.Context, identity *entity.PatientIdentity) error {
		return repository.ErrIdentityExists
	}
	repo.ModifyFunc = func(ctx context.Context, nationalID string, fn func(identity *entity.PatientIdentity) error) (*entity.PatientIdentity, error) {
		return nil, repository.ErrStorageUnavailable
	}
	uc, _ := newTestIdentityUsecase(repo)

	_, err := uc.RegisterOrUpdate(context.Background(), registration("X", entity.IdentityAttributes{}, "visit"))

	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.ModifyCallCount))
}

func TestIdentityUsecase_CreateFailureIsReturned(t *testing.T) {
	repo := newMemIdentityRepository()
	boom := errors.New("boom")
	repo.CreateFunc = func(ctx context.Context, identity *entity.PatientIdentity) error {
		return boom
	}
	uc, _ := newTestIdentityUsecase(repo)

	_, err := uc.RegisterOrUpdate(context.Background(), registration("X", entity.IdentityAttributes{}, "visit"))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(0), atomic.LoadInt32(&repo.ModifyCallCount))
}

func TestIdentityUsecase_BlankNationalID(t *testing.T) {
	uc, _ := newTestIdentityUsecase(newMemIdentityRepository())

	_, err := uc.RegisterOrUpdate(context.Background(), registration("  ", entity.IdentityAttributes{}, ""))

	assert.ErrorIs(t, err, ErrInvalidNationalID)
}

func TestIdentityUsecase_GetSortsHistoryByMeasurementDate(t *testing.T) {
	repo := newMemIdentityRepository()
	uc, _ := newTestIdentityUsecase(repo)
	ctx := context.Background()

	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, offset := range []int{2, 0, 1} {
		_, err := uc.RegisterOrUpdate(ctx, &RegistrationRequest{
			NationalID: "X",
			Visit:      &entity.VisitRecord{MeasurementDate: day.AddDate(0, 0, offset)},
		})
		require.NoError(t, err)
	}

	identity, err := uc.GetByNationalID(ctx, "X")
	require.NoError(t, err)
	require.Len(t, identity.Visits, 3)
	assert.Equal(t, []int{2, 3, 1}, []int{identity.Visits[0].Seq, identity.Visits[1].Seq, identity.Visits[2].Seq})

	latest, err := uc.LatestVisit(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Seq)
}

func TestIdentityUsecase_NotFound(t *testing.T) {
	uc, _ := newTestIdentityUsecase(newMemIdentityRepository())
	ctx := context.Background()

	_, err := uc.GetByNationalID(ctx, "missing")
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = uc.History(ctx, "missing")
	assert.ErrorIs(t, err, ErrPatientNotFound)

	assert.ErrorIs(t, uc.Delete(ctx, "missing"), ErrPatientNotFound)
}

func TestIdentityUsecase_SearchAndDelete(t *testing.T) {
	repo := newMemIdentityRepository()
	uc, _ := newTestIdentityUsecase(repo)
	ctx := context.Background()

	_, err := uc.RegisterOrUpdate(ctx, registration("X", entity.IdentityAttributes{Name: ptr("Hong Gildong"), Phone: ptr("010-1234")}, ""))
	require.NoError(t, err)

	found, err := uc.Search(ctx, "Gildong")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "X", found[0].NationalID)

	none, err := uc.Search(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, uc.Delete(ctx, "X"))
	assert.Equal(t, 0, repo.count())
}
