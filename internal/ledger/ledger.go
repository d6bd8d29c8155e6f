package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/dealbook/internal/auth"
	"github.com/ksred/dealbook/internal/export"
	"github.com/ksred/dealbook/internal/table"
	"github.com/ksred/dealbook/internal/types"
	"github.com/ksred/dealbook/pkg/response"
)

// Service handles secondary-ledger ingestion and reconciliation
type Service struct {
	db *Database
}

// NewService creates a new ledger service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// IngestResult reports how many rows of an upload were stored
type IngestResult struct {
	Kind      Kind `json:"kind"`
	TotalRows int  `json:"total_rows"`
	AddedRows int  `json:"added_rows"`
}

// Ingest parses one uploaded export and stores its new records for the
// owner. Records whose key is already stored, or repeated in the same file,
// are skipped. An account list replaces the owner's previous one.
func (s *Service) Ingest(ownerID string, kind Kind, t *table.Table) (*IngestResult, error) {
	logger := log.With().
		Str("owner_id", ownerID).
		Str("kind", string(kind)).
		Str("service", "ledger").
		Logger()

	var (
		added int
		err   error
	)
	switch kind {
	case KindPayments:
		var records []Payment
		if records, err = ParsePayments(t); err == nil {
			added, err = s.db.InsertPayments(ownerID, records)
		}
	case KindIBRebates:
		var records []IBRebate
		if records, err = ParseIBRebates(t); err == nil {
			added, err = s.db.InsertIBRebates(ownerID, records)
		}
	case KindCRMWithdrawals:
		var records []CRMWithdrawal
		if records, err = ParseCRMWithdrawals(t); err == nil {
			added, err = s.db.InsertCRMWithdrawals(ownerID, records)
		}
	case KindCRMDeposits:
		var records []CRMDeposit
		if records, err = ParseCRMDeposits(t); err == nil {
			added, err = s.db.InsertCRMDeposits(ownerID, records)
		}
	case KindAccounts:
		var records []Account
		if records, err = ParseAccounts(t); err == nil {
			added, err = s.db.ReplaceAccounts(ownerID, records)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to ingest ledger")
		return nil, err
	}

	logger.Info().
		Int("total_rows", t.Len()).
		Int("added_rows", added).
		Msg("ledger ingested")

	return &IngestResult{Kind: kind, TotalRows: t.Len(), AddedRows: added}, nil
}

// FinalReport totals the owner's ledgers within the range
func (s *Service) FinalReport(ownerID string, r DateRange) (*FinalReport, error) {
	l, err := s.db.GetLedgers(ownerID, r)
	if err != nil {
		return nil, err
	}

	report := BuildFinalReport(l, r)
	log.Debug().
		Str("owner_id", ownerID).
		Str("service", "ledger").
		Int("total_records", report.Sufficiency.TotalRecords).
		Bool("charts_recommended", report.Sufficiency.ChartsRecommended).
		Msg("built final report")
	return report, nil
}

// DepositDiscrepancies matches the owner's CRM deposits against gateway
// deposits within the range
func (s *Service) DepositDiscrepancies(ownerID string, r DateRange) ([]Discrepancy, error) {
	crm, err := s.db.GetCRMDeposits(ownerID, r)
	if err != nil {
		return nil, err
	}
	gateway, err := s.db.GetPaymentsByCategory(ownerID, CategoryM2pDeposit, r)
	if err != nil {
		return nil, err
	}

	discrepancies := MatchDepositLedgers(crm, gateway)
	log.Info().
		Str("owner_id", ownerID).
		Str("service", "ledger").
		Int("crm_deposits", len(crm)).
		Int("gateway_deposits", len(gateway)).
		Int("discrepancies", len(discrepancies)).
		Msg("matched deposit ledgers")
	return discrepancies, nil
}

// GinHandlers contains HTTP handlers for ledger endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for ledger endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func ownerFrom(c *gin.Context) (string, bool) {
	claims, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, "Missing authentication claims")
		return "", false
	}
	ownerID := auth.GetClientID(claims)
	if ownerID == "" {
		response.Unauthorized(c, "Invalid client ID in token")
		return "", false
	}
	return ownerID, true
}

// UploadHandler handles multipart uploads of one ledger export
func (h *GinHandlers) UploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := ownerFrom(c)
		if !ok {
			return
		}

		kind, err := ParseKind(c.Param("kind"))
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		fh, err := c.FormFile("file")
		if err != nil {
			response.BadRequest(c, "file is required")
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		defer f.Close()

		t, err := table.Read(fh.Filename, f)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Ingest(ownerID, kind, t)
		if errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrRequiredColumns) {
			err = response.Invalid(err)
		}
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, types.IngestResponse{
			Kind:     string(result.Kind),
			Received: result.TotalRows,
			Inserted: result.AddedRows,
			Skipped:  result.TotalRows - result.AddedRows,
		})
	}
}

func dateRangeFrom(c *gin.Context) (DateRange, bool) {
	r, err := ParseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		response.Handle(c, nil, response.Invalid(err))
		return DateRange{}, false
	}
	return r, true
}

// FinalReportHandler handles GET requests for the secondary final report
func (h *GinHandlers) FinalReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := ownerFrom(c)
		if !ok {
			return
		}
		r, ok := dateRangeFrom(c)
		if !ok {
			return
		}

		report, err := h.service.FinalReport(ownerID, r)
		response.Handle(c, report, err)
	}
}

// DepositDiscrepanciesHandler handles GET requests for unmatched deposits
func (h *GinHandlers) DepositDiscrepanciesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := ownerFrom(c)
		if !ok {
			return
		}
		r, ok := dateRangeFrom(c)
		if !ok {
			return
		}

		discrepancies, err := h.service.DepositDiscrepancies(ownerID, r)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		rows := make([][]string, 0, len(discrepancies))
		for _, d := range discrepancies {
			rows = append(rows, d.Row())
		}
		response.Success(c, types.DiscrepancyResponse{
			Headers: DiscrepancyHeaders,
			Rows:    rows,
			Count:   len(rows),
		})
	}
}

// DiscrepancySheet names the sheet of the discrepancy workbook
const DiscrepancySheet = "Deposit Discrepancies"

// DownloadDiscrepanciesHandler streams unmatched deposits as an XLSX workbook
func (h *GinHandlers) DownloadDiscrepanciesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := ownerFrom(c)
		if !ok {
			return
		}
		r, ok := dateRangeFrom(c)
		if !ok {
			return
		}

		discrepancies, err := h.service.DepositDiscrepancies(ownerID, r)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		var buf bytes.Buffer
		sheets := []export.Sheet{{Name: DiscrepancySheet, Table: DiscrepancyTable(discrepancies)}}
		if err := export.WriteXLSX(&buf, sheets); err != nil {
			response.Handle(c, nil, err)
			return
		}

		c.Header("Content-Disposition", `attachment; filename="deposit_discrepancies.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}
