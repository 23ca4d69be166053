package export

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shrimpsizemoose/trekker/logger"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/surendar1863/student-edge-program/internal/app"
	"github.com/surendar1863/student-edge-program/internal/scoring"
)

type GSheetExporter struct {
	service   *app.Service
	scheduler *gocron.Scheduler
	sheets    map[string]*sheets.Service
}

// NewGSheetExporter schedules one export job per configured sheet and starts
// the scheduler.
func NewGSheetExporter(ctx context.Context, service *app.Service) (*GSheetExporter, error) {
	e := &GSheetExporter{
		service:   service,
		scheduler: gocron.NewScheduler(time.UTC),
		sheets:    make(map[string]*sheets.Service),
	}

	for _, cfg := range service.Config.GSheet {
		svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets service: %w", err)
		}
		e.sheets[cfg.SheetID] = svc

		cfg := cfg
		_, err = e.scheduler.Cron(cfg.Schedule).Do(func() {
			if err := e.Export(ctx, &cfg); err != nil {
				logger.Error.Printf("Export to sheet %s failed: %v", cfg.SheetID, err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule export: %w", err)
		}
		logger.Info.Printf("Scheduled export to %s/%s with %q", cfg.SheetID, cfg.SheetName, cfg.Schedule)
	}

	e.scheduler.StartAsync()
	return e, nil
}

func (e *GSheetExporter) Stop() {
	e.scheduler.Stop()
}

// Export recomputes the report of every roll listed on the sheet and writes
// one row per student.
func (e *GSheetExporter) Export(ctx context.Context, cfg *app.GSheetConfig) error {
	svc, ok := e.sheets[cfg.SheetID]
	if !ok {
		return fmt.Errorf("no sheets client for %s", cfg.SheetID)
	}

	readRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.StudentsRange)
	resp, err := svc.Spreadsheets.Values.Get(cfg.SheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read students: %w", err)
	}

	sections := e.sectionNames()
	opts := e.service.Config.ExportOptions()
	rows := StudentRows(resp.Values, cfg.FirstRow)

	for _, sr := range rows {
		report, err := e.service.Report(ctx, sr.Roll, opts)
		if err != nil {
			return fmt.Errorf("failed to build report for %s: %w", sr.Roll, err)
		}

		updateRange := fmt.Sprintf("%s!%s%d", cfg.SheetName, cfg.ScoresColumn, sr.Row)
		_, err = svc.Spreadsheets.Values.Update(cfg.SheetID, updateRange,
			&sheets.ValueRange{Values: [][]interface{}{ReportRow(report, sections)}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update cell: %w", err)
		}
	}

	if cfg.TimestampRange == "" {
		return nil
	}
	timestamp := fmt.Sprintf("UPD: %s %s", time.Now().Format("2 January 15:04"), e.emoji())
	updateRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.TimestampRange)
	_, err = svc.Spreadsheets.Values.Update(cfg.SheetID, updateRange,
		&sheets.ValueRange{Values: [][]interface{}{{timestamp}}}).ValueInputOption("RAW").Context(ctx).Do()

	logger.Info.Printf("Exported %d students to %s/%s", len(rows), cfg.SheetID, cfg.SheetName)
	return err
}

func (e *GSheetExporter) sectionNames() []string {
	var names []string
	for _, s := range e.service.Bank.Sections() {
		names = append(names, s.Name)
	}
	return names
}

func (e *GSheetExporter) emoji() string {
	variants := e.service.Config.EmojiVariants
	if len(variants) == 0 {
		return ""
	}
	return variants[rand.Intn(len(variants))]
}

type StudentRow struct {
	Roll string
	Row  int
}

// StudentRows maps the first cell of every non-empty row to its sheet row.
func StudentRows(values [][]interface{}, firstRow int) []StudentRow {
	if firstRow <= 0 {
		firstRow = 1
	}
	var rows []StudentRow
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		roll := strings.TrimSpace(fmt.Sprint(row[0]))
		if roll == "" {
			continue
		}
		rows = append(rows, StudentRow{Roll: roll, Row: firstRow + i})
	}
	return rows
}

// ReportRow renders one cell per section followed by "total/max".
// Sections without a submission are left blank.
func ReportRow(report *scoring.Report, sections []string) []interface{} {
	row := make([]interface{}, 0, len(sections)+1)
	for _, name := range sections {
		if t, ok := report.Section(name); ok {
			row = append(row, t.String())
			continue
		}
		row = append(row, "")
	}
	return append(row, report.String())
}
