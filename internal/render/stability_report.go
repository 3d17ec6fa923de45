// Package render builds the simulator's analytical-report workbook:
// a title sheet plus a per-iteration signal table, written with the same
// excelize sheet-building idiom the report controller uses for its export
// (SetSheetRow + NewStyle for headers), adapted from XLSX-to-HTTP-response
// into XLSX-to-bytes for a Telegram document attachment.
package render

import (
	"bytes"
	"fmt"
	"time"

	"psycheos-gateway/internal/domainmath"
	"psycheos-gateway/internal/simulator"

	"github.com/xuri/excelize/v2"
)

// IterationRow is one logged turn of a simulation session, the source
// data for the signal table sheet.
type IterationRow struct {
	ReplicaID     int
	Signal        simulator.Signal
	ActiveLayer   string
	MatchScore    float64
	CascadeProb   float64
	DeltaTrust    int
	CrisisWarning bool
}

// StabilityReport is everything the final workbook needs: session
// metadata, the iteration log, and the derived TSI/CCI indices.
type StabilityReport struct {
	CaseName     string
	CaseID       string
	SessionGoal  string
	Mode         string
	CrisisFlag   string
	GeneratedAt  time.Time
	Iterations   []IterationRow
	TSI          float64
	TSIBand      domainmath.StabilityBand
	TSIComponents domainmath.StabilityComponents
	CCI          float64
}

var headerStyle = excelize.Style{Font: &excelize.Font{Bold: true}}

// BuildStabilityReport renders a StabilityReport into an XLSX workbook,
// returning its bytes ready for SendDocument.
func BuildStabilityReport(report StabilityReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Сводка"
	f.SetSheetName("Sheet1", summarySheet)
	if err := writeSummarySheet(f, summarySheet, report); err != nil {
		return nil, err
	}

	logSheet := "Лог реплик"
	if _, err := f.NewSheet(logSheet); err != nil {
		return nil, err
	}
	if err := writeIterationSheet(f, logSheet, report.Iterations); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, sheet string, report StabilityReport) error {
	style, err := f.NewStyle(&headerStyle)
	if err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Кейс", fmt.Sprintf("%s (%s)", report.CaseName, report.CaseID)},
		{"Цель сессии", report.SessionGoal},
		{"Режим", report.Mode},
		{"Кризисный флаг", report.CrisisFlag},
		{"Дата", report.GeneratedAt.Format("02.01.2006 15:04")},
		{"CCI", report.CCI},
		{"TSI", report.TSI},
		{"Интерпретация TSI", string(report.TSIBand)},
		{"R_match", report.TSIComponents.RMatch},
		{"L_consistency", report.TSIComponents.LConsistency},
		{"Alliance_score", report.TSIComponents.Alliance},
		{"Uncertainty_modulation", report.TSIComponents.UncertaintyModulation},
		{"Therapist_reactivity", report.TSIComponents.TherapistReactivity},
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "A13", style); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "B", 28)
}

var iterationHeaders = []string{
	"№", "Сигнал", "Слой", "Match", "Cascade prob.", "ΔTrust", "Кризис",
}

func writeIterationSheet(f *excelize.File, sheet string, rows []IterationRow) error {
	style, err := f.NewStyle(&headerStyle)
	if err != nil {
		return err
	}
	headers := iterationHeaders
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", style); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			row.ReplicaID, string(row.Signal), row.ActiveLayer,
			row.MatchScore, row.CascadeProb, row.DeltaTrust, row.CrisisWarning,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "G", 16)
}
