package xlsx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func TestExportWritesDocumentsAndStats(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	docs := []domain.Document{
		{
			ID:               "doc-1",
			DocumentType:     domain.IdentityCard,
			Status:           domain.StatusConfirmed,
			OriginalFilename: "front.jpg",
			CreatedAt:        created,
			UpdatedAt:        created.Add(time.Minute),
			User:             &domain.DocumentOwner{ID: "u1", Name: "Amal", Email: "amal@example.com"},
		},
		{
			ID:            "doc-2",
			DocumentType:  domain.DrivingLicense,
			Status:        domain.StatusFailed,
			ErrorMessages: []string{"Image floue", "Type non reconnu"},
		},
	}
	stats := &domain.AdminStats{
		TotalUsers:        3,
		TotalDocuments:    2,
		DocumentsByType:   map[domain.DocumentType]int{domain.IdentityCard: 1, domain.DrivingLicense: 1},
		DocumentsByStatus: map[domain.Status]int{domain.StatusConfirmed: 1, domain.StatusFailed: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, NewExporter(nil).Export(context.Background(), &buf, docs, stats))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{DocumentsSheet, StatsSheet}, f.GetSheetList())

	rows, err := f.GetRows(DocumentsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, documentHeaders, rows[0])
	assert.Equal(t, "doc-1", rows[1][0])
	assert.Equal(t, "cin", rows[1][1])
	assert.Equal(t, "Amal", rows[1][4])
	assert.Equal(t, "2024-05-01 10:00:00", rows[1][6])
	assert.Equal(t, "Image floue; Type non reconnu", rows[2][9])

	statRows, err := f.GetRows(StatsSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Total users", "3"}, statRows[1])
	assert.Contains(t, statRows, []string{"Status: failed", "1"})
}

func TestExportWithoutStatsHasSingleSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(nil).Export(context.Background(), &buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	assert.Equal(t, []string{DocumentsSheet}, f.GetSheetList())
}
