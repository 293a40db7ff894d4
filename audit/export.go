package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/xuri/excelize/v2"
)

// ExportColumns is the header row shared by the CSV and XLSX exports.
var ExportColumns = []string{
	"id",
	"created_at",
	"tenant_id",
	"actor_id",
	"action",
	"resource_type",
	"resource_id",
	"details",
	"metadata",
	"ip_address",
	"user_agent",
}

// Exporter is the streaming read side consumed by the writers below.
type Exporter interface {
	Export(ctx context.Context, filter types.AuditFilter, fn func(types.AuditEntry) error) error
}

// WriteCSV streams the entries matching filter to w as CSV.
func WriteCSV(ctx context.Context, w io.Writer, source Exporter, filter types.AuditFilter) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportColumns); err != nil {
		return err
	}
	count := 0
	err := source.Export(ctx, filter, func(entry types.AuditEntry) error {
		if err := writer.Write(exportRow(entry)); err != nil {
			return err
		}
		count++
		if count%500 == 0 {
			writer.Flush()
			return writer.Error()
		}
		return nil
	})
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX streams the entries matching filter into a single-sheet
// workbook written to w.
func WriteXLSX(ctx context.Context, w io.Writer, source Exporter, filter types.AuditFilter) error {
	const sheet = "Audit Log"

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	header := make([]any, 0, len(ExportColumns))
	for _, col := range ExportColumns {
		header = append(header, excelize.Cell{StyleID: headerStyle, Value: col})
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := 2
	err = source.Export(ctx, filter, func(entry types.AuditEntry) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := exportRow(entry)
		out := make([]any, 0, len(values))
		for _, value := range values {
			out = append(out, value)
		}
		row++
		return sw.SetRow(cell, out)
	})
	if err != nil {
		return err
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func exportRow(entry types.AuditEntry) []string {
	metadata := ""
	if len(entry.Metadata) > 0 {
		if raw, err := json.Marshal(entry.Metadata); err == nil {
			metadata = string(raw)
		}
	}
	return []string{
		entry.ID.String(),
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.TenantID.String(),
		entry.ActorID.String(),
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Details,
		metadata,
		entry.IPAddress,
		entry.UserAgent,
	}
}
