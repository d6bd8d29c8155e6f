package ledger

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/dealbook/internal/table"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Payment{}, &IBRebate{}, &CRMWithdrawal{}, &CRMDeposit{}, &Account{}))
	return db
}

func depositsTable(rows ...[]string) *table.Table {
	return table.New([]string{"Request ID", "Request Time", "Trading Account", "Trading Amount", "Payment Method", "Client ID"}, rows)
}

func paymentsTable(rows ...[]string) *table.Table {
	return table.New([]string{"Transaction ID", "Status", "Type", "Payment gateway", "Transaction amount", "Booked", "Trading account", "Tier fee"}, rows)
}

func TestService_IngestSkipsKnownRecords(t *testing.T) {
	service := NewService(setupTestDB(t))

	first := depositsTable(
		[]string{"D1", "2024-03-01 10:00:00", "1001", "100", "", "abc"},
		[]string{"D2", "2024-03-02 10:00:00", "1002", "50", "", "def"},
	)
	result, err := service.Ingest("owner-1", KindCRMDeposits, first)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.AddedRows)

	second := depositsTable(
		[]string{"D2", "2024-03-02 10:00:00", "1002", "50", "", "def"},
		[]string{"D3", "2024-03-03 10:00:00", "1003", "75", "", "ghi"},
		[]string{"D3", "2024-03-03 10:00:00", "1003", "75", "", "ghi"},
	)
	result, err = service.Ingest("owner-1", KindCRMDeposits, second)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.AddedRows)

	result, err = service.Ingest("owner-2", KindCRMDeposits, second)
	require.NoError(t, err)
	assert.Equal(t, 2, result.AddedRows, "keys are scoped per owner")

	deposits, err := service.db.GetCRMDeposits("owner-1", DateRange{})
	require.NoError(t, err)
	assert.Len(t, deposits, 3)
}

func TestService_IngestErrors(t *testing.T) {
	service := NewService(setupTestDB(t))

	_, err := service.Ingest("owner-1", KindIBRebates, table.Empty([]string{"Transaction ID"}))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = service.Ingest("owner-1", Kind("deals"), depositsTable())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestService_ReplaceAccounts(t *testing.T) {
	service := NewService(setupTestDB(t))
	header := []string{"Login", "Name", "Group"}

	_, err := service.Ingest("owner-1", KindAccounts, table.New(header, [][]string{
		{"1001", "Alice", WelcomeBonusGroup},
		{"1002", "Bob", `real\Retail`},
	}))
	require.NoError(t, err)

	result, err := service.Ingest("owner-1", KindAccounts, table.New(header, [][]string{
		{"1002", "Bob", WelcomeBonusGroup},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, result.AddedRows)

	accounts, err := service.db.GetAccounts("owner-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "1002", accounts[0].Login)
	assert.True(t, accounts[0].IsWelcomeBonus)
}

func TestService_FinalReport(t *testing.T) {
	service := NewService(setupTestDB(t))

	_, err := service.Ingest("owner-1", KindPayments, paymentsTable(
		[]string{"TX1", "DONE", "DEPOSIT", "M2P", "100", "2024-03-01 10:00:00", "acc_1", "2"},
		[]string{"TX2", "DONE", "WITHDRAW", "SETTLEMENT", "40", "2024-03-05 10:00:00", "acc_1", "1"},
		[]string{"TX3", "DONE", "DEPOSIT", "M2P", "300", "2024-04-10 10:00:00", "acc_1", "3"},
	))
	require.NoError(t, err)
	_, err = service.Ingest("owner-1", KindAccounts, table.New([]string{"Login", "Name", "Group"}, [][]string{
		{"1001", "Alice", WelcomeBonusGroup},
	}))
	require.NoError(t, err)
	_, err = service.Ingest("owner-1", KindCRMWithdrawals, table.New(
		[]string{"Request ID", "Review Time", "Trading Account", "Withdrawal Amount"},
		[][]string{
			{"W1", "2024-03-02 10:00:00", "1001 (Alice)", "20"},
			{"W2", "2024-03-02 11:00:00", "1002 (Bob)", "30"},
		},
	))
	require.NoError(t, err)

	r, err := ParseDateRange("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	report, err := service.FinalReport("owner-1", r)
	require.NoError(t, err)

	assert.Equal(t, 100.0, report.Value(MetricM2pDeposit))
	assert.Equal(t, 40.0, report.Value(MetricSettlementWithdrawal))
	assert.Equal(t, 2.0, report.Value(MetricTierFeeDeposit))
	assert.Equal(t, 1.0, report.Value(MetricTierFeeWithdraw))
	assert.Equal(t, 20.0, report.Value(MetricWelcomeBonus))
	assert.Equal(t, 50.0, report.Value(MetricCRMWithdrawTotal))
	assert.Equal(t, []string{"Date Range", "Filtered from 01.03.2024 to 31.03.2024"}, report.Rows[0])
	assert.False(t, report.Sufficiency.ChartsRecommended)

	unbounded, err := service.FinalReport("owner-1", DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 400.0, unbounded.Value(MetricM2pDeposit))
	assert.Empty(t, unbounded.DateRange)
}

func TestService_DepositDiscrepancies(t *testing.T) {
	service := NewService(setupTestDB(t))

	_, err := service.Ingest("owner-1", KindCRMDeposits, depositsTable(
		[]string{"D1", "2024-03-01 10:00:00", "1001", "100", "", "abc"},
		[]string{"D2", "2024-03-01 12:00:00", "1002", "80", "Topchange", "xyz"},
		[]string{"D3", "2024-03-01 12:00:00", "1003", "60", "", "ghi"},
	))
	require.NoError(t, err)
	_, err = service.Ingest("owner-1", KindPayments, paymentsTable(
		[]string{"TX1", "DONE", "DEPOSIT", "M2P", "100.5", "2024-03-01 11:00:00", "account_abc_1", ""},
		[]string{"TX2", "DONE", "WITHDRAW", "M2P", "60", "2024-03-01 12:00:00", "account_ghi_1", ""},
	))
	require.NoError(t, err)

	discrepancies, err := service.DepositDiscrepancies("owner-1", DateRange{})
	require.NoError(t, err)

	require.Len(t, discrepancies, 1, "withdrawals and topchange deposits take no part")
	assert.Equal(t, SourceCRMDeposit, discrepancies[0].Source)
	assert.Equal(t, "ghi", discrepancies[0].ClientID)
	assert.Equal(t, "60.00", discrepancies[0].Amount)
}

func withClaims(clientID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("claims", jwt.MapClaims{"client_id": clientID})
		c.Next()
	}
}

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handlers := NewGinHandlers(NewService(setupTestDB(t)))

	router := gin.New()
	group := router.Group("/ledgers", withClaims("client-1"))
	group.POST("/:kind", handlers.UploadHandler())
	group.GET("/final-report", handlers.FinalReportHandler())
	group.GET("/deposit-discrepancies", handlers.DepositDiscrepanciesHandler())
	group.GET("/deposit-discrepancies/xlsx", handlers.DownloadDiscrepanciesHandler())
	return router
}

func uploadRequest(t *testing.T, kind, filename, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ledgers/"+kind, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGinHandlers_Upload(t *testing.T) {
	router := setupRouter(t)
	csv := "Request ID;Request Time;Trading Account;Trading Amount\nD1;2024-03-01 10:00:00;1001;100\nD1;2024-03-01 10:00:00;1001;100\n"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "crm-deposits", "deposits.csv", csv))

	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "crm-deposits", data["kind"])
	assert.Equal(t, float64(2), data["received"])
	assert.Equal(t, float64(1), data["inserted"])
	assert.Equal(t, float64(1), data["skipped"])
}

func TestGinHandlers_UploadErrors(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name     string
		kind     string
		filename string
		content  string
		code     string
	}{
		{name: "unknown kind", kind: "deals", filename: "a.csv", content: "a\n1\n", code: "BAD_REQUEST"},
		{name: "unsupported format", kind: "payments", filename: "a.pdf", content: "x", code: "BAD_REQUEST"},
		{name: "missing columns", kind: "crm-deposits", filename: "a.csv", content: "Request ID\nD1\n", code: "VALIDATION_FAILED"},
		{name: "empty file", kind: "payments", filename: "a.csv", content: "Transaction ID,Status\n", code: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, uploadRequest(t, tt.kind, tt.filename, tt.content))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			errBody := decode(t, w)["error"].(map[string]interface{})
			assert.Equal(t, tt.code, errBody["code"])
		})
	}
}

func TestGinHandlers_FinalReport(t *testing.T) {
	router := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledgers/final-report?start=2024-03-01&end=2024-03-31", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Filtered from 01.03.2024 to 31.03.2024", data["date_range"])
	assert.Len(t, data["metrics"], 11)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledgers/final-report?start=03/01/2024&end=2024-03-31", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGinHandlers_DepositDiscrepancies(t *testing.T) {
	router := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "crm-deposits", "deposits.csv",
		"Request ID,Request Time,Trading Account,Trading Amount,Client ID\nD1,2024-03-01 10:00:00,1001,100,abc\n"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledgers/deposit-discrepancies", nil))
	require.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	assert.Len(t, data["headers"], len(DiscrepancyHeaders))
}

func TestGinHandlers_DownloadDiscrepancies(t *testing.T) {
	router := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "crm-deposits", "deposits.csv",
		"Request ID,Request Time,Trading Account,Trading Amount,Client ID\nD1,2024-03-01 10:00:00,1001,100,abc\n"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledgers/deposit-discrepancies/xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "deposit_discrepancies.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(DiscrepancySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, DiscrepancyHeaders, rows[0])
	assert.Equal(t, SourceCRMDeposit, rows[1][0])
}

func TestDiscrepancyTable(t *testing.T) {
	tbl := DiscrepancyTable([]Discrepancy{{Source: SourceM2pDeposit, Amount: "1.00", Confirmed: "N", ID: "PAY_1"}})

	assert.Equal(t, DiscrepancyHeaders, tbl.Columns)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "PAY_1", tbl.Value(0, "ID"))
	assert.Equal(t, 0, DiscrepancyTable(nil).Len())
}

func TestGinHandlers_MissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handlers := NewGinHandlers(NewService(setupTestDB(t)))
	router := gin.New()
	router.GET("/ledgers/final-report", handlers.FinalReportHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ledgers/final-report", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
