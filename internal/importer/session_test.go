package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pim-service/internal/models"
)

func newUploadedSession() ImportSession {
	return NewSession("products.xlsx", "/tmp/spool.xlsx", models.ImportFormatXLSX, []string{"Curtains", "Blinds"})
}

func TestNewSessionDefaults(t *testing.T) {
	s := newUploadedSession()

	assert.Equal(t, models.StepWorksheets, s.Step)
	assert.Equal(t, models.ImportModeCreateOrUpdate, s.Settings.Mode)
	assert.True(t, s.Settings.SmartAttributeExtraction)
	assert.True(t, s.Settings.AutoAssignBarcodes)
	assert.True(t, s.Settings.AutoCreateParents)
	assert.False(t, s.Settings.AutoGenerateParentMode)
}

func TestWithWorksheets(t *testing.T) {
	s := newUploadedSession()

	next, err := s.WithWorksheets([]string{"Blinds"}, []string{"Product Name", "SKU"})
	assert.NoError(t, err)
	assert.Equal(t, models.StepMapping, next.Step)
	assert.Equal(t, []string{"Blinds"}, next.Worksheets)

	// the original value is untouched
	assert.Equal(t, models.StepWorksheets, s.Step)
	assert.Nil(t, s.Worksheets)
}

func TestWithWorksheetsRejectsUnknownSheet(t *testing.T) {
	s := newUploadedSession()

	_, err := s.WithWorksheets([]string{"Nope"}, nil)
	assert.Error(t, err)

	_, err = s.WithWorksheets(nil, nil)
	assert.Error(t, err)
}

func TestWithMapping(t *testing.T) {
	s := newUploadedSession()
	s, _ = s.WithWorksheets([]string{"Blinds"}, []string{"Product Name", "SKU"})

	settings := models.ImportSettings{Mode: models.ImportModeCreateOnly}
	next, err := s.WithMapping(map[int]string{0: FieldProductName, 1: FieldVariantSKU}, settings)

	assert.NoError(t, err)
	assert.Equal(t, models.StepDryRun, next.Step)
	assert.Equal(t, models.ImportModeCreateOnly, next.Settings.Mode)
}

func TestWithMappingRejectsBadInput(t *testing.T) {
	s := newUploadedSession()

	// mapping before worksheet selection
	_, err := s.WithMapping(map[int]string{0: FieldProductName}, models.ImportSettings{Mode: models.ImportModeCreateOnly})
	assert.Error(t, err)

	s, _ = s.WithWorksheets([]string{"Blinds"}, []string{"Product Name"})

	_, err = s.WithMapping(map[int]string{0: "bogus_field"}, models.ImportSettings{Mode: models.ImportModeCreateOnly})
	assert.Error(t, err)

	_, err = s.WithMapping(map[int]string{0: FieldProductName}, models.ImportSettings{Mode: "destroy_everything"})
	assert.Error(t, err)

	// the product name column is the one mandatory mapping
	_, err = s.WithMapping(map[int]string{0: FieldVariantSKU}, models.ImportSettings{Mode: models.ImportModeCreateOnly})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), FieldProductName)
	}
}

func TestDryRunAndStepBack(t *testing.T) {
	s := newUploadedSession()
	s, _ = s.WithWorksheets([]string{"Blinds"}, []string{"Product Name", "SKU"})
	s, _ = s.WithMapping(map[int]string{0: FieldProductName, 1: FieldVariantSKU}, models.ImportSettings{Mode: models.ImportModeCreateOrUpdate})

	s = s.WithDryRun(&models.DryRunResult{ValidRows: 3})
	assert.Equal(t, models.StepCommit, s.Step)
	assert.NotNil(t, s.DryRun)

	back := s.StepBack()
	assert.Equal(t, models.StepDryRun, back.Step)
	assert.Nil(t, back.DryRun)

	// cannot step back past worksheet selection
	floor := back.StepBack().StepBack().StepBack()
	assert.Equal(t, models.StepWorksheets, floor.Step)
}

func TestMappedField(t *testing.T) {
	s := ImportSession{Mapping: map[int]string{0: FieldProductName, 1: ""}}

	assert.True(t, s.MappedField(FieldProductName))
	assert.False(t, s.MappedField(FieldBarcode))
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Hour)
	s := newUploadedSession()

	store.Save(s)
	got, ok := store.Get(s.ID)
	assert.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	store.Delete(s.ID)
	_, ok = store.Get(s.ID)
	assert.False(t, ok)
}

func TestSessionStorePurgesExpired(t *testing.T) {
	store := NewSessionStore(time.Nanosecond)

	old := newUploadedSession()
	old.CreatedAt = time.Now().Add(-time.Minute)
	store.Save(old)

	fresh := newUploadedSession()
	store.Save(fresh) // triggers the purge

	_, ok := store.Get(old.ID)
	assert.False(t, ok)
}
