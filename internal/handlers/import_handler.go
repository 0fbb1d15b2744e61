package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"pim-service/internal/config"
	"pim-service/internal/importer"
	"pim-service/internal/models"
)

// ImportHandler drives the five-step import wizard: upload, worksheet
// selection, column mapping, dry run, commit.
type ImportHandler struct {
	sessions  *importer.SessionStore
	mapper    *importer.HeaderMapper
	mappings  *importer.MappingStore
	planner   *importer.Planner
	committer *importer.Committer
	cfg       *config.Config
	logger    *logrus.Entry
}

func NewImportHandler(sessions *importer.SessionStore, mapper *importer.HeaderMapper, mappings *importer.MappingStore, planner *importer.Planner, committer *importer.Committer, cfg *config.Config, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		sessions:  sessions,
		mapper:    mapper,
		mappings:  mappings,
		planner:   planner,
		committer: committer,
		cfg:       cfg,
		logger:    logger.WithField("component", "import-handler"),
	}
}

// StartImport uploads a spreadsheet and opens a wizard session
// POST /api/v1/imports
func (h *ImportHandler) StartImport(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "a file upload is required")
		return
	}
	if file.Size > h.cfg.MaxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds the %d MB upload limit", h.cfg.MaxUploadBytes/(1024*1024)))
		return
	}

	format, err := importer.DetectFormat(file.Filename)
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
		return
	}

	// spool to disk so worksheets can be re-read one at a time
	path := filepath.Join(h.cfg.UploadSpoolDir,
		fmt.Sprintf("pim-import-%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(file.Filename))))
	if err := c.SaveUploadedFile(file, path); err != nil {
		h.logger.WithError(err).Error("failed to spool upload")
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "failed to store uploaded file")
		return
	}

	wb := importer.OpenWorkbook(path, format)
	worksheets, err := wb.Worksheets()
	if err != nil {
		os.Remove(path)
		respondError(c, http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
		return
	}

	session := importer.NewSession(file.Filename, path, format, worksheets)
	h.sessions.Save(session)

	h.logger.WithFields(logrus.Fields{
		"sessionId":  session.ID,
		"fileName":   file.Filename,
		"worksheets": len(worksheets),
	}).Info("import session started")

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: session})
}

// GetImport returns the current wizard state
// GET /api/v1/imports/:id
func (h *ImportHandler) GetImport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: session})
}

// SelectWorksheets picks the worksheets to import and proposes a mapping.
// A remembered mapping for the same header shape wins over fresh guesses.
// POST /api/v1/imports/:id/worksheets
func (h *ImportHandler) SelectWorksheets(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.SelectWorksheetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	wb := importer.OpenWorkbook(session.FilePath, session.Format)
	headers, err := wb.Headers(req.Worksheets[0])
	if err != nil {
		respondError(c, http.StatusBadRequest, "UNREADABLE_FILE", err.Error())
		return
	}

	next, err := session.WithWorksheets(req.Worksheets, headers)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_WORKSHEETS", err.Error())
		return
	}

	proposed := h.mapper.ProposeMapping(headers)
	recalled := false
	var settings *models.ImportSettings
	if remembered := h.mappings.Recall(c.Request.Context(), headers); remembered != nil {
		proposed = remembered.Columns
		settings = &remembered.Settings
		recalled = true
	}
	next.MappingRecalled = recalled
	h.sessions.Save(next)

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: gin.H{
		"session":          next,
		"headers":          headers,
		"proposedMapping":  proposed,
		"mappingRecalled":  recalled,
		"recalledSettings": settings,
	}})
}

// ConfirmMapping locks in the column mapping and settings
// PUT /api/v1/imports/:id/mapping
func (h *ImportHandler) ConfirmMapping(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.ConfirmMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Settings.Mode == "" {
		req.Settings.Mode = session.Settings.Mode
	}

	next, err := session.WithMapping(req.Columns, req.Settings)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_MAPPING", err.Error())
		return
	}
	h.sessions.Save(next)

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: next})
}

// DryRun simulates the commit on a bounded sample of rows. A successful dry
// run is what earns the mapping a place in the mapping memory; a mapping that
// was confirmed but never got this far is not worth recalling.
// POST /api/v1/imports/:id/dry-run
func (h *ImportHandler) DryRun(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if session.Step < models.StepDryRun {
		respondError(c, http.StatusConflict, "WRONG_STEP", "mapping must be confirmed before the dry run")
		return
	}

	wb := importer.OpenWorkbook(session.FilePath, session.Format)
	result, err := h.planner.Plan(c.Request.Context(), session, wb)
	if err != nil {
		h.logger.WithError(err).Error("dry run failed")
		respondError(c, http.StatusInternalServerError, "DRY_RUN_FAILED", err.Error())
		return
	}

	next := session.WithDryRun(result)
	h.sessions.Save(next)

	if err := h.mappings.Remember(c.Request.Context(), next.Headers, next.Mapping, next.Settings); err != nil {
		// mapping memory is an optimization, never a blocker
		h.logger.WithError(err).Warn("failed to remember mapping")
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}

// Commit applies the import inside one transaction and closes the session
// POST /api/v1/imports/:id/commit
func (h *ImportHandler) Commit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if session.Step < models.StepCommit {
		respondError(c, http.StatusConflict, "WRONG_STEP", "a dry run is required before committing")
		return
	}

	wb := importer.OpenWorkbook(session.FilePath, session.Format)
	result, err := h.committer.Commit(c.Request.Context(), session, wb)
	if err != nil {
		h.logger.WithError(err).Error("import commit rolled back")
		respondError(c, http.StatusInternalServerError, "COMMIT_FAILED", err.Error())
		return
	}

	h.closeSession(session)
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}

// StepBack moves the wizard one step backwards
// POST /api/v1/imports/:id/back
func (h *ImportHandler) StepBack(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	next := session.StepBack()
	h.sessions.Save(next)
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: next})
}

// CancelImport discards a session and its spooled file
// DELETE /api/v1/imports/:id
func (h *ImportHandler) CancelImport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.closeSession(session)
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// GetFields returns the mapping vocabulary for the mapping UI
// GET /api/v1/imports/fields
func (h *ImportHandler) GetFields(c *gin.Context) {
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: gin.H{
		"fields":       importer.Fields(),
		"marketplaces": importer.Marketplaces(),
	}})
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/imports/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.ImportTemplate{
		Entity:  "products",
		Version: "1",
		Columns: importer.Fields(),
	}

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	// Style for header row
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// Style for required columns
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	// Add Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Product Import Instructions")

	f.SetCellValue("Instructions", "A3", "SMART IMPORT FEATURES:")
	f.SetCellValue("Instructions", "A4", "- Column headers are matched automatically; review the proposed mapping before confirming.")
	f.SetCellValue("Instructions", "A5", "- Colour, width and drop can be extracted from the product name when not mapped explicitly.")
	f.SetCellValue("Instructions", "A6", "- Rows without barcodes receive codes from the GS1 pool when auto-assignment is enabled.")
	f.SetCellValue("Instructions", "A7", "- Variant-only sheets can auto-generate parent products from SKU prefixes or similar names.")

	f.SetCellValue("Instructions", "A9", "Column Definitions:")
	f.SetCellValue("Instructions", "A10", "Column")
	f.SetCellValue("Instructions", "B10", "Description")
	f.SetCellValue("Instructions", "C10", "Required")
	f.SetCellValue("Instructions", "D10", "Type")
	f.SetCellValue("Instructions", "E10", "Example")

	for i, col := range template.Columns {
		row := i + 11
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 28)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.xlsx")

	f.Write(c.Writer)
}

// session loads the wizard session named in the URL, responding on failure
func (h *ImportHandler) session(c *gin.Context) (importer.ImportSession, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "invalid import session ID")
		return importer.ImportSession{}, false
	}
	session, ok := h.sessions.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "import session not found or expired")
		return importer.ImportSession{}, false
	}
	return session, true
}

func (h *ImportHandler) closeSession(session importer.ImportSession) {
	h.sessions.Delete(session.ID)
	if session.FilePath != "" {
		if err := os.Remove(session.FilePath); err != nil && !os.IsNotExist(err) {
			h.logger.WithError(err).Warn("failed to remove spooled upload")
		}
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error:   models.Error{Code: code, Message: message},
	})
}
