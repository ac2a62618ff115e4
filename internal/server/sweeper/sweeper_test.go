package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/logging"
	"github.com/dmitrijs2005/cmsauth/internal/server/metrics"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/certificates"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCert(t *testing.T, repo *certificates.MemoryRepository, refreshExp time.Time) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &models.Certificate{
		UUID:             uuid.New(),
		Audience:         models.AudienceOpen,
		UserID:           uuid.New(),
		AccessExpiredAt:  refreshExp.Add(-time.Hour),
		RefreshExpiredAt: refreshExp,
	}))
}

func TestRunOnce_DeletesExpired(t *testing.T) {
	clock := clockx.NewFakeUnix(1_700_000_000)
	repo := certificates.NewMemoryRepository()
	mtr := metrics.New(prometheus.NewRegistry())

	seedCert(t, repo, clock.Now().Add(-time.Minute))
	seedCert(t, repo, clock.Now().Add(-time.Second))
	seedCert(t, repo, clock.Now().Add(time.Hour))

	s := New(repo, clock, logging.Discard(), mtr, "", time.Second)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(mtr.SweptCertificatesTotal))

	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingRepo struct {
	certificates.Repository
}

func (failingRepo) SweepExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestRunOnce_Error(t *testing.T) {
	s := New(failingRepo{}, clockx.NewFakeUnix(0), logging.Discard(), nil, "", 0)
	_, err := s.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := New(certificates.NewMemoryRepository(), clockx.System{}, logging.Discard(), nil, "whenever", 0)
	assert.Error(t, s.Start(context.Background()))
}

func TestStart_RunsOnSchedule(t *testing.T) {
	clock := clockx.NewFakeUnix(1_700_000_000)
	repo := certificates.NewMemoryRepository()
	seedCert(t, repo, clock.Now().Add(-time.Minute))

	s := New(repo, clock, logging.Discard(), nil, "@every 1s", time.Second)
	require.NoError(t, s.Start(context.Background()))
	defer func() { <-s.Stop().Done() }()

	assert.Eventually(t, func() bool { return repo.Len() == 0 }, 5*time.Second, 50*time.Millisecond)
}

type deadlineRepo struct {
	certificates.Repository
	deadline time.Time
	bounded  bool
}

func (r *deadlineRepo) SweepExpired(ctx context.Context, _ time.Time) (int64, error) {
	r.deadline, r.bounded = ctx.Deadline()
	return 0, nil
}

func TestRunOnce_BoundsStoreCall(t *testing.T) {
	repo := &deadlineRepo{}
	s := New(repo, clockx.System{}, logging.Discard(), nil, "", 2*time.Second)

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, repo.bounded)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), repo.deadline, time.Second)

	unbounded := New(repo, clockx.System{}, logging.Discard(), nil, "", 0)
	_, err = unbounded.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, repo.bounded, "zero timeout leaves the call unbounded")
}
