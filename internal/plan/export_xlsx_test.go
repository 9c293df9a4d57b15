package plan_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-study/internal/plan"
)

func TestExportXLSX(t *testing.T) {
	svc, catalog := newService(t)
	ctx := context.Background()
	student := newStudent()

	p, err := svc.Create(ctx, student, sampleInput())
	require.NoError(t, err)
	_, err = svc.ToggleItem(ctx, student, p.ID, p.Items[2].ID)
	require.NoError(t, err)
	p, err = svc.Get(ctx, student, p.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, plan.ExportXLSX(&buf, p, catalog))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{plan.ExportSheet}, f.GetSheetList())

	cell := func(name string) string {
		t.Helper()
		v, err := f.GetCellValue(plan.ExportSheet, name)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Week 43", cell("A1"))
	assert.Equal(t, "2026-10-19 to 2026-10-25", cell("A2"))
	assert.Equal(t, "Monday", cell("A3"))
	assert.Equal(t, "Sunday", cell("G3"))

	assert.Equal(t, "Matematik: Temel Kavramlar (30 min)\nwarm up", cell("A4"))
	assert.Equal(t, "Matematik: Sayı Basamakları (60 min)", cell("A5"))
	assert.Equal(t, "✓ Türkçe: Sözcükte Anlam (45 min)", cell("B4"))
	assert.Empty(t, cell("C4"))

	assert.Equal(t, "Total: 90 min", cell("A7"))
	assert.Equal(t, "Total: 45 min", cell("B7"))
	assert.Equal(t, "Total: 0 min", cell("G7"))
}

func TestExportXLSX_EmptyPlan(t *testing.T) {
	catalog := testCatalog(t)
	p := plan.Plan{Title: "Empty", StartDate: weekStart, EndDate: weekEnd}

	var buf bytes.Buffer
	require.NoError(t, plan.ExportXLSX(&buf, p, catalog))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(plan.ExportSheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Total: 0 min", v)
}
