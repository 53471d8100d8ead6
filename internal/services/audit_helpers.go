package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/lifeloop/lifeloop/pkg/logger"
)

// Audit actions recorded by the services.
const (
	AuditActionConsentRequest = "consent.request"
	AuditActionConsentConfirm = "consent.confirm"
	AuditActionMediaRefresh   = "media.refresh"
	AuditActionMediaDigest    = "media.digest"
)

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("audit write failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

func auditResult(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
