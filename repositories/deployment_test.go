package repositories

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pendeploy/compute-deployer/database"
	"github.com/pendeploy/compute-deployer/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.Initialize(sqlite.Open(dsn), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newRun(instance string) *models.Deployment {
	return &models.Deployment{
		ProjectName:  "nextjs-gcp-compute",
		StackName:    "dev",
		InstanceName: instance,
		Zone:         "us-central1-a",
		MachineType:  "e2-micro",
		Project:      "my-project",
		Status:       models.DeploymentStatusRunning,
	}
}

func TestCreateAssignsID(t *testing.T) {
	repo := NewDeploymentRepository(newTestDB(t))
	ctx := context.Background()

	run := newRun("web-1")
	require.NoError(t, repo.Create(ctx, run))
	assert.Len(t, run.ID, 36)

	got, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "web-1", got.InstanceName)
	assert.Equal(t, models.DeploymentStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
}

func TestMarkSucceeded(t *testing.T) {
	repo := NewDeploymentRepository(newTestDB(t))
	ctx := context.Background()

	run := newRun("web-1")
	require.NoError(t, repo.Create(ctx, run))

	end := "2026-10-19T10:00:00Z"
	result := models.DeploymentResult{
		Outputs: models.OutputMap{
			models.OutputInstanceName:       {Value: "web-1"},
			models.OutputInstanceExternalIP: {Value: "203.0.113.7"},
		},
		Summary: models.UpdateSummary{Kind: "update", Result: "succeeded", EndTime: &end, Version: 3},
	}
	require.NoError(t, repo.MarkSucceeded(ctx, run.ID, result))

	got, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeploymentStatusSucceeded, got.Status)
	assert.Equal(t, result.Outputs, got.Outputs)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "succeeded", got.Summary.Result)
	assert.Equal(t, 3, got.Summary.Version)
	assert.NotNil(t, got.FinishedAt)
}

func TestMarkFailed(t *testing.T) {
	repo := NewDeploymentRepository(newTestDB(t))
	ctx := context.Background()

	run := newRun("web-1")
	require.NoError(t, repo.Create(ctx, run))
	require.NoError(t, repo.MarkFailed(ctx, run.ID, "quota exceeded"))

	got, err := repo.FindByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeploymentStatusFailed, got.Status)
	assert.Equal(t, "quota exceeded", got.Error)
	assert.Nil(t, got.Summary)

	count, err := repo.CountByStatus(ctx, "nextjs-gcp-compute", "dev", models.DeploymentStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCountByStatusIsScopedToStack(t *testing.T) {
	repo := NewDeploymentRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRun("web-1")))
	prod := newRun("web-2")
	prod.StackName = "prod"
	require.NoError(t, repo.Create(ctx, prod))
	other := newRun("web-3")
	other.ProjectName = "other-project"
	require.NoError(t, repo.Create(ctx, other))

	for stack, want := range map[string]int64{"dev": 1, "prod": 1, "staging": 0} {
		count, err := repo.CountByStatus(ctx, "nextjs-gcp-compute", stack, models.DeploymentStatusRunning)
		require.NoError(t, err)
		assert.Equal(t, want, count, stack)
	}
}

func TestMarkUnknownID(t *testing.T) {
	repo := NewDeploymentRepository(newTestDB(t))
	err := repo.MarkFailed(context.Background(), "00000000-0000-0000-0000-000000000000", "boom")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewDeploymentRepository(newTestDB(t))
	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindAllNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeploymentRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"web-1", "web-2", "web-3"} {
		run := newRun(name)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, run))
	}

	all, err := repo.FindAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "web-3", all[0].InstanceName)
	assert.Equal(t, "web-1", all[2].InstanceName)

	limited, err := repo.FindAll(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	latest, err := repo.FindLatestByStack(ctx, "nextjs-gcp-compute", "dev")
	require.NoError(t, err)
	assert.Equal(t, "web-3", latest.InstanceName)

	_, err = repo.FindLatestByStack(ctx, "nextjs-gcp-compute", "prod")
	assert.ErrorIs(t, err, ErrNotFound)
}
