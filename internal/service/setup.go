package service

import (
	"time"

	"wa-groupguard/internal/config"
	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/models"
	"wa-groupguard/internal/storage"
)

var (
	memberRepository    *storage.MemberRepository
	policyRepository    *storage.PolicyRepository
	blacklistRepository *storage.BlacklistRepository
	auditRepository     *storage.AuditRepository
	floodTracker        *models.FloodTracker
	globalConfig        *config.Config
)

// Initialize initializes the service with configuration
func Initialize(cfg *config.Config) {
	globalConfig = cfg
	floodTracker = models.NewFloodTracker(time.Duration(cfg.Moderation.FloodWindowSecs) * time.Second)
}

// InitRepositories initializes the repositories and migrates their tables
func InitRepositories() {
	if storage.DB == nil {
		logger.Fatalf("Database is not initialized, cannot create repositories")
	}

	memberRepository = storage.NewMemberRepository(storage.DB)
	if err := memberRepository.MigrateTable(); err != nil {
		logger.Warningf("Error migrating MemberRecord table: %v", err)
	}

	policyRepository = storage.NewPolicyRepository(storage.DB,
		globalConfig.Moderation.MaxWarnings, globalConfig.Moderation.Autoban)
	if err := policyRepository.MigrateTable(); err != nil {
		logger.Warningf("Error migrating GroupPolicy table: %v", err)
	}

	blacklistRepository = storage.NewBlacklistRepository(storage.DB)
	if err := blacklistRepository.MigrateTable(); err != nil {
		logger.Warningf("Error migrating blacklist tables: %v", err)
	}

	auditRepository = storage.NewAuditRepository(storage.DB)
	if err := auditRepository.MigrateTable(); err != nil {
		logger.Warningf("Error migrating AuditLogEntry table: %v", err)
	}
}

// Members returns the member record repository
func Members() *storage.MemberRepository {
	return memberRepository
}

// Policies returns the group policy repository
func Policies() *storage.PolicyRepository {
	return policyRepository
}

// Blacklist returns the blacklist/whitelist repository
func Blacklist() *storage.BlacklistRepository {
	return blacklistRepository
}

// Audit returns the audit log repository
func Audit() *storage.AuditRepository {
	return auditRepository
}

// Flood returns the process-scoped flood tracker
func Flood() *models.FloodTracker {
	return floodTracker
}
