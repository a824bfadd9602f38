package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxv/vpn_bot_server/internal/testutil"
)

func TestPlanRepository_GetAll_OrderedByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	repo := NewPlanRepository(db)

	first := testutil.TestPlan(t, db, testutil.WithPlanTag("BASE"))
	second := testutil.TestPlan(t, db, testutil.WithPlanTag("PRO"))

	plans, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, first.ID, plans[0].ID)
	assert.Equal(t, second.ID, plans[1].ID)
}

func TestPlanRepository_GetActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	repo := NewPlanRepository(db)

	testutil.TestPlan(t, db, testutil.WithPlanTag("BASE"))
	inactive := testutil.TestPlan(t, db, testutil.WithPlanTag("LEGACY"))
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	plans, err := repo.GetActive()
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "BASE", plans[0].Tag)
}
