package internal

import (
	"context"
	"fmt"
	"instametrics/internal/apperrors"
	"instametrics/internal/collector"
	"instametrics/internal/collector/interfaces"
	"instametrics/internal/database"
	"instametrics/internal/models"
	"instametrics/internal/providers"
	"instametrics/internal/repository"
	"instametrics/internal/services"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultRole = "admin"
	defaultPlan = "basic"
)

// Admin backs the operator subcommands of the binary.
type Admin struct {
	auth      services.AuthServiceInterface
	registry  services.RegistryServiceInterface
	users     repository.UserRepository
	scheduler interfaces.SchedulerInterface
	archive   *collector.Archive
	db        *database.DB
	logger    providers.Logger
}

var ErrArchiveDisabled = apperrors.NewValidationError("snapshot archive is disabled, set collector.archiveDir")

func NewAdmin(auth services.AuthServiceInterface, registry services.RegistryServiceInterface, users repository.UserRepository, scheduler interfaces.SchedulerInterface, archive *collector.Archive, db *database.DB, logger providers.Logger) *Admin {
	return &Admin{
		auth:      auth,
		registry:  registry,
		users:     users,
		scheduler: scheduler,
		archive:   archive,
		db:        db,
		logger:    logger,
	}
}

type SeedInput struct {
	TenantCode  string
	CompanyName string
	Name        string
	Email       string
	Password    string
	Role        string
}

// Seed creates a tenant and its first user.
func (a *Admin) Seed(ctx context.Context, in SeedInput) (*models.User, error) {
	code := strings.TrimSpace(in.TenantCode)
	if code == "" || strings.TrimSpace(in.Email) == "" {
		return nil, apperrors.NewValidationError("tenant code and email are required")
	}
	role := in.Role
	if role == "" {
		role = defaultRole
	}

	tenant := &models.Tenant{Code: code, CompanyName: in.CompanyName, FantasyName: in.CompanyName, Plan: defaultPlan, Active: true}
	user := &models.User{Name: in.Name, Email: in.Email, Role: role, Active: true}
	if err := a.auth.Register(ctx, tenant, user, in.Password); err != nil {
		return nil, err
	}
	a.logger.Infof(providers.TypeApp, "Seeded tenant %s with user %s", tenant.Code, user.Email)
	return user, nil
}

// Connect stores an Instagram credential for the tenant the given user
// belongs to.
func (a *Admin) Connect(ctx context.Context, email, accountID, token string) (*models.AccountCredential, error) {
	owner, err := a.users.FindByEmailWithTenant(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("lookup of user %s failed: %w", email, err)
	}
	return a.registry.Register(ctx, owner.Tenant.ID, accountID, token)
}

// Collect runs every collector job once.
func (a *Admin) Collect(ctx context.Context) error {
	return a.scheduler.RunNow(ctx)
}

// ArchiveSummary describes one archive file written by a retention purge.
type ArchiveSummary struct {
	File       string
	Cutoff     string
	ArchivedAt time.Time
	Snapshots  int
}

// Archives lists the archive files oldest first.
func (a *Admin) Archives() ([]ArchiveSummary, error) {
	if !a.archive.Enabled() {
		return nil, ErrArchiveDisabled
	}
	files, err := a.archive.List()
	if err != nil {
		return nil, err
	}

	out := make([]ArchiveSummary, 0, len(files))
	for _, file := range files {
		af, err := a.archive.Read(file)
		if err != nil {
			return nil, err
		}
		out = append(out, ArchiveSummary{
			File:       filepath.Base(file),
			Cutoff:     af.Cutoff,
			ArchivedAt: af.ArchivedAt,
			Snapshots:  len(af.Snapshots),
		})
	}
	return out, nil
}

// ArchivedSnapshots returns the purged snapshots of accountID, or of every
// account when accountID is empty.
func (a *Admin) ArchivedSnapshots(accountID string) ([]models.FollowerSnapshot, error) {
	if !a.archive.Enabled() {
		return nil, ErrArchiveDisabled
	}
	all, err := a.archive.Snapshots()
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		return all, nil
	}

	var out []models.FollowerSnapshot
	for _, snap := range all {
		if snap.AccountID == accountID {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (a *Admin) Close() {
	a.scheduler.Stop()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warnf(providers.TypeApp, "database close failed: %s", err)
		}
	}
	a.logger.Close()
}
