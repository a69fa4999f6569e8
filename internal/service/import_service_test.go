package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

func TestImportServiceImportsCSV(t *testing.T) {
	repo := &mockRosterRepo{}
	roster := newTestRosterService(t, repo)
	svc := NewImportService(roster, 1024, nil)

	result, err := svc.Import(context.Background(), ImportUpload{
		ClassName:   "Grade 5",
		Filename:    "grade5.csv",
		Body:        strings.NewReader("الاسم,الجوال\nسارة,050\n  ,051\nعمر,052\n"),
		CreateClass: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, repo.saves)

	students, err := roster.ListStudents(context.Background(), "Grade 5")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "سارة", students[0].Name)
}

func TestImportServiceRejections(t *testing.T) {
	repo := &mockRosterRepo{}
	svc := NewImportService(newTestRosterService(t, repo), 16, nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, ImportUpload{ClassName: "A", Filename: "a.txt", Body: strings.NewReader("name\nx\n"), CreateClass: true})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrImport))

	_, err = svc.Import(ctx, ImportUpload{ClassName: "A", Filename: "a.csv", Body: strings.NewReader(strings.Repeat("x", 17))})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.Import(ctx, ImportUpload{ClassName: "A", Filename: "a.csv"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	assert.Zero(t, repo.saves)
}
