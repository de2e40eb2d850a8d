package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/policy"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

const exportSheet = "Tickets"

var exportHeaders = []string{
	"Ticket Number", "Title", "Status", "Priority", "Category", "Source",
	"Created By", "Assigned To", "Comments", "Created At", "First Response At", "Resolved At", "Closed At",
}

// ExportService renders ticket lists as spreadsheets.
type ExportService struct {
	tickets *TicketService
	now     func() time.Time
}

// NewExportService constructs the service on top of the ticket listing.
func NewExportService(tickets *TicketService) *ExportService {
	return &ExportService{tickets: tickets, now: tickets.now}
}

// ExportTickets writes the filtered ticket list to an XLSX workbook and
// returns its bytes with a suggested file name.
func (s *ExportService) ExportTickets(ctx context.Context, caller policy.Caller, input TicketListInput) ([]byte, string, error) {
	if err := requireCaller(caller); err != nil {
		return nil, "", err
	}
	if err := policy.Authorize(caller, policy.ActionTicketExport, policy.Resource{}); err != nil {
		return nil, "", err
	}
	tickets, err := s.tickets.List(ctx, caller, input)
	if err != nil {
		return nil, "", err
	}

	buf, err := writeTicketWorkbook(tickets)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	filename := fmt.Sprintf("tickets_%s.xlsx", s.now().UTC().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func writeTicketWorkbook(tickets []domain.Ticket) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for rowIdx, ticket := range tickets {
		for colIdx, value := range ticketRow(ticket) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	for i := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(exportSheet, col, col, 18)
	}

	return f.WriteToBuffer()
}

func ticketRow(t domain.Ticket) []any {
	var creator, assignee string
	if t.CreatedBy != nil {
		creator = t.CreatedBy.Name
	}
	if t.AssignedTo != nil {
		assignee = t.AssignedTo.Name
	}
	var category string
	if t.Category != nil {
		category = *t.Category
	}
	return []any{
		t.TicketNumber,
		t.Title,
		string(t.Status),
		string(t.Priority),
		category,
		t.Source,
		creator,
		assignee,
		t.CommentCount,
		formatTime(&t.CreatedAt),
		formatTime(t.FirstResponseAt),
		formatTime(t.ResolvedAt),
		formatTime(t.ClosedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
