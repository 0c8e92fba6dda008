package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"settlement-reconciliation-service/internal/fixtures"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/internal/reconciler"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, keepUploads bool) (*Server, string) {
	t.Helper()

	service, err := reconciler.NewReconciliationService(reconciler.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	dir := t.TempDir()
	config := DefaultConfig()
	config.UploadDir = dir
	config.KeepUploads = keepUploads

	srv, err := New(config, service)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, dir
}

type upload struct {
	field    string
	filename string
	content  []byte
}

func xlsxBytes(t *testing.T, table *models.RawTable) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := fixtures.EncodeXLSX(&buf, table); err != nil {
		t.Fatalf("failed to encode workbook: %v", err)
	}
	return buf.Bytes()
}

func samplePair(t *testing.T) []upload {
	t.Helper()
	statement := fixtures.StatementTable("statement.xlsx", []fixtures.StatementEntry{
		{Type: "Remittance", Description: "Payout 77700000001", SettleAmt: fixtures.Number(100)},
		{Type: "Remittance", Description: "Payout 77700000002", SettleAmt: fixtures.Number(55)},
		{Type: "Remittance", Description: "Ref XXP00000004", SettleAmt: fixtures.Text("$1,000.00")},
	})
	settlement := fixtures.SettlementTable("settlement.xlsx", []fixtures.SettlementEntry{
		{PartnerPin: fixtures.Text("77700000001"), Action: "Paid", PayoutRoundAmt: fixtures.Number(8312.5), APIRate: fixtures.Number(83.125)},
		{PartnerPin: fixtures.Text("77700000002"), Action: "Paid", PayoutRoundAmt: fixtures.Number(4000), APIRate: fixtures.Number(80)},
		{PartnerPin: fixtures.Text("77700000003"), Action: "Paid", PayoutRoundAmt: fixtures.Number(10), APIRate: fixtures.Number(1)},
	})
	return []upload{
		{field: "statement", filename: "statement.xlsx", content: xlsxBytes(t, statement)},
		{field: "settlement", filename: "settlement.xlsx", content: xlsxBytes(t, settlement)},
	}
}

func multipartRequest(t *testing.T, target string, uploads []upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, u := range uploads {
		part, err := writer.CreateFormFile(u.field, u.filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(u.content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestIndexRendersUploadForm(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="statement"`, `name="settlement"`, `action="/process"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index page should contain %s", want)
		}
	}
}

func TestProcessRendersResultsTable(t *testing.T) {
	srv, dir := newTestServer(t, false)

	rec := serve(srv, multipartRequest(t, "/process", samplePair(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	expected := []string{
		`id="results-table"`,
		`class="table table-striped"`,
		"<th>PartnerPin</th>",
		"<th>AmountVariance</th>",
		"<td>77700000001</td>",
		"<td>0.000000</td>",
		"<td>Missing in Statement</td>",
		"<td>Missing in Settlement</td>",
		"<td>&lt;NA&gt;</td>",
	}
	for _, want := range expected {
		if !strings.Contains(body, want) {
			t.Errorf("results page should contain %s", want)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("uploads should be removed after processing, found %d files", len(entries))
	}
}

func TestProcessKeepsUploads(t *testing.T) {
	srv, dir := newTestServer(t, true)

	rec := serve(srv, multipartRequest(t, "/process", samplePair(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read upload dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 kept uploads, got %d", len(entries))
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, "_statement.xlsx") && !strings.HasSuffix(name, "_settlement.xlsx") {
			t.Errorf("unexpected upload name %s", name)
		}
	}
}

func TestProcessMissingFile(t *testing.T) {
	srv, _ := newTestServer(t, false)

	pair := samplePair(t)
	rec := serve(srv, multipartRequest(t, "/process", pair[:1]))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alert-danger") {
		t.Error("expected the form to be shown again with an error")
	}
}

func TestReconcileAPI(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := serve(srv, multipartRequest(t, "/api/reconcile", samplePair(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		RunID   string `json:"run_id"`
		Records []struct {
			PartnerPin           string `json:"PartnerPin"`
			Classification       string `json:"Classification"`
			FinalReconcileStatus string `json:"FinalReconcileStatus"`
			AmountVariance       string `json:"AmountVariance"`
		} `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.RunID == "" {
		t.Error("expected a run id")
	}

	expected := []struct {
		pin      string
		status   string
		variance string
	}{
		{"77700000001", "Reconciled", "0.000000"},
		{"77700000002", "Amount Mismatch", "-5.000000"},
		{"77700000003", "Missing in Statement", "<NA>"},
		{"77700000004", "Missing in Settlement", "<NA>"},
	}
	if len(payload.Records) != len(expected) {
		t.Fatalf("expected %d records, got %d", len(expected), len(payload.Records))
	}
	for i, want := range expected {
		got := payload.Records[i]
		if got.PartnerPin != want.pin {
			t.Errorf("record %d: expected pin %s, got %s", i, want.pin, got.PartnerPin)
		}
		if got.FinalReconcileStatus != want.status {
			t.Errorf("record %d: expected status %s, got %s", i, want.status, got.FinalReconcileStatus)
		}
		if got.AmountVariance != want.variance {
			t.Errorf("record %d: expected variance %s, got %s", i, want.variance, got.AmountVariance)
		}
	}
}

func TestReconcileAPIFormats(t *testing.T) {
	srv, _ := newTestServer(t, false)

	t.Run("csv", func(t *testing.T) {
		rec := serve(srv, multipartRequest(t, "/api/reconcile?format=csv", samplePair(t)))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		if lines[0] != "PartnerPin,Classification,FinalReconcileStatus,AmountVariance" {
			t.Errorf("unexpected header: %s", lines[0])
		}
		if len(lines) != 5 {
			t.Errorf("expected 5 lines, got %d", len(lines))
		}
		if !strings.Contains(rec.Header().Get("Content-Disposition"), "reconciliation_result.csv") {
			t.Errorf("unexpected disposition: %s", rec.Header().Get("Content-Disposition"))
		}
	})

	t.Run("xlsx", func(t *testing.T) {
		rec := serve(srv, multipartRequest(t, "/api/reconcile?format=xlsx", samplePair(t)))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		if err != nil {
			t.Fatalf("response is not a workbook: %v", err)
		}
		defer f.Close()
		pin, err := f.GetCellValue("Reconciliation", "A2")
		if err != nil {
			t.Fatalf("failed to read cell: %v", err)
		}
		if pin != "77700000001" {
			t.Errorf("expected first pin 77700000001, got %s", pin)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		rec := serve(srv, multipartRequest(t, "/api/reconcile?format=pdf", samplePair(t)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReconcileAPIErrors(t *testing.T) {
	srv, _ := newTestServer(t, false)
	pair := samplePair(t)

	tests := []struct {
		name     string
		uploads  []upload
		wantCode int
		wantErr  string
	}{
		{
			name: "unsupported extension",
			uploads: []upload{
				{field: "statement", filename: "statement.txt", content: []byte("hello")},
				pair[1],
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "unsupported_format",
		},
		{
			name: "settlement too short",
			uploads: []upload{
				pair[0],
				{field: "settlement", filename: "settlement.csv", content: []byte("only one row\n")},
			},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "too_few_rows",
		},
		{
			name:     "missing settlement",
			uploads:  pair[:1],
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "missing_field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, multipartRequest(t, "/api/reconcile", tt.uploads))
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["code"] != tt.wantErr {
				t.Errorf("expected code %s, got %v", tt.wantErr, body["code"])
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty upload dir", func(c *Config) { c.UploadDir = "" }, true},
		{"negative upload size", func(c *Config) { c.MaxUploadBytes = -1 }, true},
		{"negative shutdown", func(c *Config) { c.ShutdownTimeout = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRequiresService(t *testing.T) {
	config := DefaultConfig()
	config.UploadDir = t.TempDir()
	if _, err := New(config, nil); err == nil {
		t.Error("expected error without a service")
	}
}

func TestInternalErrorBody(t *testing.T) {
	srv, _ := newTestServer(t, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	srv.internalError(c, os.ErrClosed)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["code"] != "unexpected_error" {
		t.Errorf("expected unexpected_error code, got %q", body["code"])
	}
	if body["error"] != "reconciliation failed" {
		t.Errorf("internal details should not leak, got %q", body["error"])
	}
}
