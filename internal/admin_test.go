package internal

import (
	"context"
	"errors"
	"instametrics/internal/apperrors"
	"instametrics/internal/collector"
	"instametrics/internal/database"
	"instametrics/internal/graph"
	"instametrics/internal/models"
	"instametrics/internal/repository"
	"instametrics/internal/services"
	"instametrics/internal/structures"
	"instametrics/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminTestGraph struct {
	graph.ClientInterface
	profileErr error
}

func (g *adminTestGraph) Profile(_ context.Context, accountID, _ string) (*graph.Profile, error) {
	if g.profileErr != nil {
		return nil, g.profileErr
	}
	return &graph.Profile{ID: accountID, Username: "acme"}, nil
}

type countingScheduler struct {
	appTestScheduler
	runs int
}

func (s *countingScheduler) RunNow(_ context.Context) error {
	s.runs++
	return nil
}

func newTestAdmin(t *testing.T, g *adminTestGraph) (*Admin, *countingScheduler, services.AuthServiceInterface) {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", 1)
	require.NoError(t, err)

	conf := &structures.Config{JWT: structures.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"}}
	logger := &testutil.MockLogger{}
	users := repository.NewUserRepository(db)
	auth := services.NewAuthService(conf, users, repository.NewAuditRepository(db), logger)
	registry := services.NewRegistryService(conf, repository.NewCredentialRepository(db), g, logger)
	scheduler := &countingScheduler{}

	conf.Collector.ArchiveDir = t.TempDir()
	archive, err := collector.NewArchiveProvider(conf, logger)
	require.NoError(t, err)
	t.Cleanup(archive.Close)

	admin := NewAdmin(auth, registry, users, scheduler, archive, db, logger)
	t.Cleanup(admin.Close)
	return admin, scheduler, auth
}

func TestAdmin_SeedThenLogin(t *testing.T) {
	admin, _, auth := newTestAdmin(t, &adminTestGraph{})
	ctx := context.Background()

	user, err := admin.Seed(ctx, SeedInput{
		TenantCode:  "12345678000199",
		CompanyName: "Acme",
		Name:        "Ana",
		Email:       " Ana@Acme.com ",
		Password:    "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@acme.com", user.Email)
	assert.Equal(t, "admin", user.Role)

	result, err := auth.Authenticate(ctx, "ana@acme.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestAdmin_SeedRequiresTenantAndEmail(t *testing.T) {
	admin, _, _ := newTestAdmin(t, &adminTestGraph{})

	_, err := admin.Seed(context.Background(), SeedInput{Email: "ana@acme.com", Password: "secret123"})
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestAdmin_ConnectStoresCredentialForUsersTenant(t *testing.T) {
	admin, _, _ := newTestAdmin(t, &adminTestGraph{})
	ctx := context.Background()

	_, err := admin.Seed(ctx, SeedInput{TenantCode: "t1", Email: "ana@acme.com", Password: "secret123"})
	require.NoError(t, err)

	cred, err := admin.Connect(ctx, "ANA@acme.com", "17841400000000001", "tok-abcdef-123456")
	require.NoError(t, err)
	assert.Equal(t, "acme", cred.Username)

	active, err := admin.registry.ActiveCredential(ctx, cred.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "17841400000000001", active.InstagramAccountID)
}

func TestAdmin_ConnectUnknownUser(t *testing.T) {
	admin, _, _ := newTestAdmin(t, &adminTestGraph{})

	_, err := admin.Connect(context.Background(), "nobody@acme.com", "1784", "tok")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAdmin_ConnectFailsWhenProfileCheckFails(t *testing.T) {
	admin, _, _ := newTestAdmin(t, &adminTestGraph{profileErr: errors.New("graph down")})
	ctx := context.Background()

	_, err := admin.Seed(ctx, SeedInput{TenantCode: "t1", Email: "ana@acme.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = admin.Connect(ctx, "ana@acme.com", "1784", "tok")
	assert.ErrorContains(t, err, "graph down")
}

func TestAdmin_CollectRunsScheduler(t *testing.T) {
	admin, scheduler, _ := newTestAdmin(t, &adminTestGraph{})

	require.NoError(t, admin.Collect(context.Background()))
	assert.Equal(t, 1, scheduler.runs)
}

func TestAdmin_ArchivesSummarizesPurgedFiles(t *testing.T) {
	admin, _, _ := newTestAdmin(t, &adminTestGraph{})

	empty, err := admin.Archives()
	require.NoError(t, err)
	assert.Empty(t, empty)

	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err = admin.archive.Write(day, []models.FollowerSnapshot{
		{AccountID: "a1", Date: day.AddDate(0, 0, -2), FollowerCount: 100},
		{AccountID: "a2", Date: day.AddDate(0, 0, -2), FollowerCount: 50},
	}, day)
	require.NoError(t, err)
	_, err = admin.archive.Write(day.AddDate(0, 0, 1), []models.FollowerSnapshot{
		{AccountID: "a1", Date: day.AddDate(0, 0, -1), FollowerCount: 110},
	}, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	summaries, err := admin.Archives()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "2026-06-01", summaries[0].Cutoff)
	assert.Equal(t, 2, summaries[0].Snapshots)
	assert.Equal(t, "2026-06-02", summaries[1].Cutoff)
	assert.Equal(t, 1, summaries[1].Snapshots)
	assert.Contains(t, summaries[0].File, "snapshots-2026-06-01-")

	all, err := admin.ArchivedSnapshots("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	a1, err := admin.ArchivedSnapshots("a1")
	require.NoError(t, err)
	require.Len(t, a1, 2)
	assert.Equal(t, int64(100), a1[0].FollowerCount)
	assert.Equal(t, int64(110), a1[1].FollowerCount)
}

func TestAdmin_ArchiveDisabled(t *testing.T) {
	admin, _, _ := newTestAdmin(t, &adminTestGraph{})
	disabled, err := collector.NewArchiveProvider(&structures.Config{}, &testutil.MockLogger{})
	require.NoError(t, err)
	admin.archive = disabled

	_, err = admin.Archives()
	assert.ErrorIs(t, err, ErrArchiveDisabled)
	_, err = admin.ArchivedSnapshots("a1")
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}
