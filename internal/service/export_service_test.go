package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/finance-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newExportEnv(t *testing.T) (*testEnv, *ExportService) {
	t.Helper()
	env := newTestEnv(t)
	svc := NewExportService(env.accounts, env.recorder, env.stats)
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 8, 30, 5, 0, time.UTC) }
	return env, svc
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatXLSX, f)

	f, err = ParseExportFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, f)

	_, err = ParseExportFormat("pdf")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExportAccountsCSV(t *testing.T) {
	env, svc := newExportEnv(t)
	id := env.createAccount(t, 1, "Checking", "2500")
	env.setBalance(t, 1, id, "2600")

	file, err := svc.ExportAccounts(context.Background(), 1, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "accounts_20261015_083005.csv", file.Filename)
	assert.Equal(t, contentTypeCSV, file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Name", records[0][0])
	assert.Equal(t, []string{"Checking", "", "Checking", "2600.00", "2500.00", "100.00", "4.00"}, records[1][:7])
}

func TestExportBalanceHistoryXLSX(t *testing.T) {
	env, svc := newExportEnv(t)
	id := env.createAccount(t, 1, "Main", "10")
	b := dec("25.50")
	_, err := env.accounts.UpdateBalance(context.Background(), id, 1, &UpdateBalanceRequest{NewBalance: &b, Notes: strPtr("salary")})
	require.NoError(t, err)

	file, err := svc.ExportBalanceHistory(context.Background(), 1, ExportFormatXLSX, models.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, "balance_history_20261015_083005.xlsx", file.Filename)
	assert.Equal(t, contentTypeXLSX, file.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Balance History")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Account", rows[0][0])
	assert.Equal(t, "Main", rows[1][0])
	assert.Equal(t, "salary", rows[1][5])
}

func TestExportStatisticsCSVHasTwoSections(t *testing.T) {
	env, svc := newExportEnv(t)
	env.createAccount(t, 1, "A", "100")
	env.createAccount(t, 1, "B", "50")

	file, err := svc.ExportStatistics(context.Background(), 1, ExportFormatCSV)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(file.Data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	// summary header + 6 metrics, then account header + 2 lines
	require.Len(t, records, 10)
	assert.Equal(t, []string{"Total Balance", "150.00"}, records[1])
	assert.Equal(t, "Account", records[7][0])
}

func TestExportStatisticsXLSXSheets(t *testing.T) {
	env, svc := newExportEnv(t)
	env.createAccount(t, 1, "A", "100")

	file, err := svc.ExportStatistics(context.Background(), 1, ExportFormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Accounts"}, f.GetSheetList())
	rows, err := f.GetRows("Accounts")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExportHistoryRejectsInvertedRange(t *testing.T) {
	_, svc := newExportEnv(t)
	start := time.Now()
	end := start.Add(-time.Hour)

	_, err := svc.ExportBalanceHistory(context.Background(), 1, ExportFormatCSV, models.HistoryFilter{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrValidation)
}
