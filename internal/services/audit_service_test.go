package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lifeloop/lifeloop/internal/auditctx"
	"github.com/lifeloop/lifeloop/internal/database/testutil"
	"github.com/lifeloop/lifeloop/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID:    "user-1",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	})
	err = svc.Log(ctx, AuditEntry{
		Action:   AuditActionConsentRequest,
		Resource: "parent_confirmations",
		Result:   "success",
		Metadata: map[string]any{"parent_email": "mom@example.com"},
	})
	require.NoError(t, err)

	logs, err := svc.ListForUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, AuditActionConsentRequest, logs[0].Action)
	require.Equal(t, "203.0.113.7", logs[0].IPAddress)
	require.Equal(t, "test-agent", logs[0].UserAgent)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &metadata))
	require.Equal(t, "mom@example.com", metadata["parent_email"])
}

func TestAuditServiceValidatesEntry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "x"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	oldLog := models.AuditLog{
		BaseModel: models.BaseModel{CreatedAt: time.Now().AddDate(0, 0, -10)},
		Action:    "old.action",
		Result:    "success",
	}
	require.NoError(t, db.Create(&oldLog).Error)

	rows, err := svc.CleanupOlderThan(context.Background(), 5*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}
