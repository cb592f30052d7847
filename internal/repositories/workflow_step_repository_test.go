package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripflow/internal/workflow"
)

func TestWorkflowStepRepository_LoadMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkflowStepRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "workflow_steps"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	cp, err := repo.Load(context.Background(), "inst-1", "research")
	require.NoError(t, err)
	assert.Nil(t, cp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowStepRepository_LoadDone(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkflowStepRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "workflow_steps"`).
		WillReturnRows(sqlmock.NewRows([]string{"instance_id", "step_name", "step_index", "status", "output", "notified"}).
			AddRow("inst-1", "research", 1, "done", []byte(`{"ok":true}`), true))

	cp, err := repo.Load(context.Background(), "inst-1", "research")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, workflow.StatusDone, cp.Status)
	assert.Equal(t, 1, cp.StepIndex)
	assert.JSONEq(t, `{"ok":true}`, string(cp.Output))
	assert.True(t, cp.Notified)
}

func TestWorkflowStepRepository_LoadError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkflowStepRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "workflow_steps"`).WillReturnError(errors.New("connection reset"))

	_, err := repo.Load(context.Background(), "inst-1", "research")
	assert.ErrorContains(t, err, "load workflow step")
}

func TestWorkflowStepRepository_ListOrdersByIndex(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkflowStepRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "workflow_steps" WHERE instance_id = \$1 .* ORDER BY step_index ASC`).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"instance_id", "step_name", "step_index", "status"}).
			AddRow("inst-1", "research", 1, "done").
			AddRow("inst-1", "validate", 2, "failed"))

	got, err := repo.List(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "validate", got[1].StepName)
	assert.Equal(t, workflow.StatusFailed, got[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowStepRepository_MarkNotified(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkflowStepRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "workflow_steps" SET .*"notified"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkNotified(context.Background(), "inst-1", "research"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
