package server

import (
	"bytes"
	"html/template"
	"net/http"

	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/internal/reconciler"
	"settlement-reconciliation-service/internal/reporter"
	"settlement-reconciliation-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

type statusCount struct {
	Label string
	Count int
}

type indexPage struct {
	Title string
	Error string
}

type resultsPage struct {
	Title      string
	RunID      string
	Statement  string
	Settlement string
	Statuses   []statusCount
	Table      template.HTML
}

var pageStatuses = []models.FinalReconcileStatus{
	models.Reconciled,
	models.AmountMismatch,
	models.MissingInStatement,
	models.MissingInSettlement,
}

const pageTitle = "Settlement Reconciliation"

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", indexPage{Title: pageTitle})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// process reconciles the uploaded pair and renders the results page.
func (s *Server) process(c *gin.Context) {
	uploads := s.newUploadSet()
	defer uploads.cleanup()

	report, err := s.reconcileUploads(c, uploads)
	if err != nil {
		c.HTML(statusFor(err), "index.html", indexPage{Title: pageTitle, Error: userMessage(err)})
		return
	}

	generator, err := reportGenerator(reporter.FormatHTML)
	if err != nil {
		s.internalError(c, err)
		return
	}
	table, err := generator.RenderTable(report)
	if err != nil {
		s.internalError(c, err)
		return
	}

	page := resultsPage{
		Title:      pageTitle,
		RunID:      report.RunID,
		Statement:  uploads.names[fieldStatement],
		Settlement: uploads.names[fieldSettlement],
		Table:      table,
	}
	if report.Summary != nil {
		for _, status := range pageStatuses {
			page.Statuses = append(page.Statuses, statusCount{Label: string(status), Count: report.Summary.ByStatus[status]})
		}
	}
	c.HTML(http.StatusOK, "results.html", page)
}

// reconcile is the JSON API. The optional "format" query parameter selects
// csv or xlsx output instead of JSON.
func (s *Server) reconcile(c *gin.Context) {
	format := reporter.OutputFormat(c.DefaultQuery("format", string(reporter.FormatJSON)))
	switch format {
	case reporter.FormatJSON, reporter.FormatCSV, reporter.FormatXLSX:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json, csv or xlsx"})
		return
	}

	uploads := s.newUploadSet()
	defer uploads.cleanup()

	report, err := s.reconcileUploads(c, uploads)
	if err != nil {
		c.JSON(statusFor(err), errorBody(err))
		return
	}

	generator, err := reportGenerator(format)
	if err != nil {
		s.internalError(c, err)
		return
	}

	if format == reporter.FormatJSON {
		c.JSON(http.StatusOK, generator.NewJSONReport(report))
		return
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(report, &buf); err != nil {
		s.internalError(c, err)
		return
	}
	filename := "reconciliation_result." + string(format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}

var contentTypes = map[reporter.OutputFormat]string{
	reporter.FormatCSV:  "text/csv; charset=utf-8",
	reporter.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (s *Server) reconcileUploads(c *gin.Context, uploads *uploadSet) (*models.Report, error) {
	if err := uploads.save(c, fieldStatement); err != nil {
		return nil, err
	}
	if err := uploads.save(c, fieldSettlement); err != nil {
		return nil, err
	}

	report, err := s.service.Process(c.Request.Context(), &reconciler.ReconciliationRequest{
		StatementFile:  uploads.paths[fieldStatement],
		SettlementFile: uploads.paths[fieldSettlement],
	})
	if err != nil {
		s.logger.WithError(err).Warn("Reconciliation request failed")
		return nil, err
	}
	return report, nil
}

func (s *Server) internalError(c *gin.Context, err error) {
	renderErr := errors.Wrap(err, errors.CategoryInternal, errors.CodeUnexpectedError,
		"failed to render reconciliation result")
	s.logger.WithError(renderErr).Error("Failed to render reconciliation result")
	c.JSON(http.StatusInternalServerError, errorBody(renderErr))
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch reconcilerErr.Category {
	case errors.CategoryFile:
		return http.StatusBadRequest
	case errors.CategoryParse, errors.CategoryValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// userMessage keeps internal details out of responses.
func userMessage(err error) string {
	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok || statusFor(err) == http.StatusInternalServerError {
		return "reconciliation failed"
	}
	return reconcilerErr.Message
}

func errorBody(err error) gin.H {
	body := gin.H{"error": userMessage(err)}
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		body["code"] = reconcilerErr.Code
		if reconcilerErr.Suggestion != "" {
			body["suggestion"] = reconcilerErr.Suggestion
		}
	}
	return body
}
