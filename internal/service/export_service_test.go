package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/deskflow/helpdesk/internal/testutil"
)

func TestExportService_WritesWorkbook(t *testing.T) {
	f := newTicketFixture(t)
	export := NewExportService(f.service)
	first := f.create(t, f.client, "Printer jam")
	f.create(t, f.other, "VPN down")
	_, err := f.service.Update(f.ctx, testutil.Caller(f.agent), first.ID, TicketUpdateInput{
		AssignedToID: NullableString{Set: true, Value: &f.agent.ID},
	})
	require.NoError(t, err)

	data, filename, err := export.ExportTickets(f.ctx, testutil.Caller(f.agent), TicketListInput{})
	require.NoError(t, err)
	assert.Equal(t, "tickets_20240304_090000.xlsx", filename)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{"Tickets"}, book.GetSheetList())
	rows, err := book.GetRows("Tickets")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Ticket Number", rows[0][0])

	byNumber := map[string][]string{}
	for _, row := range rows[1:] {
		byNumber[row[0]] = row
	}
	row := byNumber[first.TicketNumber]
	require.NotNil(t, row)
	assert.Equal(t, "Printer jam", row[1])
	assert.Equal(t, "open", row[2])
	assert.Equal(t, "Client One", row[6])
	assert.Equal(t, "Agent Smith", row[7])
}

func TestExportService_FiltersApply(t *testing.T) {
	f := newTicketFixture(t)
	export := NewExportService(f.service)
	f.create(t, f.client, "Printer jam")
	f.create(t, f.client, "VPN down")

	data, _, err := export.ExportTickets(f.ctx, testutil.Caller(f.agent), TicketListInput{Search: "vpn"})
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Tickets")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExportService_AgentOnly(t *testing.T) {
	f := newTicketFixture(t)
	_, _, err := NewExportService(f.service).ExportTickets(f.ctx, testutil.Caller(f.client), TicketListInput{})
	requireCode(t, err, "FORBIDDEN")
}
