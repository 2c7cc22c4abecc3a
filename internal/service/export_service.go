package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportFormat is the file format of an export
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"

	csvTimeLayout = "2006-01-02 15:04:05"
)

// ParseExportFormat parses a format query value; empty means xlsx
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportFormatXLSX:
		return ExportFormatXLSX, nil
	case ExportFormatCSV:
		return ExportFormatCSV, nil
	default:
		return "", validationError("format must be xlsx or csv")
	}
}

// ExportFile is a generated download
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// sheet is one table of an export: a header row plus data rows
type sheet struct {
	name   string
	header []string
	rows   [][]interface{}
}

// ExportService renders accounts, history and statistics as spreadsheets
type ExportService struct {
	accounts *AccountService
	recorder *BalanceHistoryRecorder
	stats    *StatisticsService
	now      func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(accounts *AccountService, recorder *BalanceHistoryRecorder, stats *StatisticsService) *ExportService {
	return &ExportService{
		accounts: accounts,
		recorder: recorder,
		stats:    stats,
		now:      time.Now,
	}
}

// ExportAccounts exports the user's active accounts
func (s *ExportService) ExportAccounts(ctx context.Context, userID uint, format ExportFormat) (*ExportFile, error) {
	accounts, err := s.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	sh := sheet{
		name:   "Accounts",
		header: []string{"Name", "Description", "Type", "Current Balance", "Initial Balance", "Difference", "Change %", "Created At", "Updated At"},
	}
	for _, a := range accounts {
		diff := a.CurrentBalance.Sub(a.InitialBalance)
		sh.rows = append(sh.rows, []interface{}{
			a.Name, a.Description, string(a.Type),
			a.CurrentBalance, a.InitialBalance, diff, Percentage(diff, a.InitialBalance),
			a.CreatedAt, a.UpdatedAt,
		})
	}
	return s.render("accounts", format, sh)
}

// ExportBalanceHistory exports the user's balance history matching filter, newest first
func (s *ExportService) ExportBalanceHistory(ctx context.Context, userID uint, format ExportFormat, filter models.HistoryFilter) (*ExportFile, error) {
	rows, err := s.recorder.ListAllForUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	sh := sheet{
		name:   "Balance History",
		header: []string{"Account", "Type", "Balance", "Previous Balance", "Difference", "Notes", "Date"},
	}
	for _, h := range rows {
		sh.rows = append(sh.rows, []interface{}{
			h.AccountName, string(h.AccountType),
			h.Balance, h.PreviousBalance, h.Difference, h.Notes, h.CreatedAt,
		})
	}
	return s.render("balance_history", format, sh)
}

// ExportStatistics exports the statistics summary and the per-account lines
func (s *ExportService) ExportStatistics(ctx context.Context, userID uint, format ExportFormat) (*ExportFile, error) {
	stats, err := s.stats.GetStatistics(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := sheet{
		name:   "Summary",
		header: []string{"Metric", "Value"},
		rows: [][]interface{}{
			{"Total Balance", stats.TotalBalance},
			{"Total Initial Balance", stats.TotalInitialBalance},
			{"Total Gain/Loss", stats.TotalGainLoss},
			{"Total Gain/Loss %", stats.TotalGainLossPercentage},
			{"Total Accounts", stats.TotalAccounts},
			{"Active Accounts", stats.ActiveAccounts},
		},
	}
	lines := sheet{
		name:   "Accounts",
		header: []string{"Account", "Type", "Current Balance", "Initial Balance", "Difference", "Change %"},
	}
	for _, b := range stats.AccountBalances {
		lines.rows = append(lines.rows, []interface{}{
			b.AccountName, string(b.AccountType),
			b.CurrentBalance, b.InitialBalance, b.Difference, b.PercentageChange,
		})
	}
	return s.render("statistics", format, summary, lines)
}

func (s *ExportService) render(base string, format ExportFormat, sheets ...sheet) (*ExportFile, error) {
	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		data, err = writeCSV(sheets)
		contentType = contentTypeCSV
	case ExportFormatXLSX:
		data, err = writeXLSX(sheets)
		contentType = contentTypeXLSX
	default:
		return nil, validationError("format must be xlsx or csv")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", base, err)
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", base, s.now().Format("20060102_150405"), format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// writeCSV writes sheets one after another, separated by an empty record
func writeCSV(sheets []sheet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	for i, sh := range sheets {
		if i > 0 {
			if err := w.Write([]string{}); err != nil {
				return nil, err
			}
		}
		if err := w.Write(sh.header); err != nil {
			return nil, err
		}
		for _, row := range sh.rows {
			record := make([]string, len(row))
			for j, v := range row {
				record[j] = csvValue(v)
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvValue(v interface{}) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.StringFixed(2)
	case time.Time:
		return x.UTC().Format(csvTimeLayout)
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func writeXLSX(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, err
		}

		header := make([]interface{}, len(sh.header))
		for j, h := range sh.header {
			header[j] = h
		}
		if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
			return nil, err
		}
		if err := f.SetRowStyle(sh.name, 1, 1, headerStyle); err != nil {
			return nil, err
		}

		for r, row := range sh.rows {
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = xlsxValue(v)
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sh.name, cell, &values); err != nil {
				return nil, err
			}
			for j, v := range row {
				if _, ok := v.(decimal.Decimal); !ok {
					continue
				}
				money, err := excelize.CoordinatesToCellName(j+1, r+2)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellStyle(sh.name, money, money, moneyStyle); err != nil {
					return nil, err
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxValue(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case time.Time:
		return x.UTC()
	case *string:
		if x == nil {
			return ""
		}
		return *x
	default:
		return v
	}
}
