package report

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/ksred/dealbook/internal/auth"
	"github.com/ksred/dealbook/internal/export"
	"github.com/ksred/dealbook/internal/table"
	"github.com/ksred/dealbook/internal/types"
	"github.com/ksred/dealbook/pkg/response"
)

var ErrReportNotFound = errors.New("report not found")

// Report is a completed pipeline run kept for later retrieval.
type Report struct {
	ID        string
	ClientID  string
	Result    *Result
	CreatedAt time.Time
}

// Service runs reports and keeps the results for a limited time
type Service struct {
	reports *cache.Cache
}

// NewService creates a report service whose results expire after ttl
func NewService(ttl, cleanupInterval time.Duration) *Service {
	return &Service{
		reports: cache.New(ttl, cleanupInterval),
	}
}

// Generate runs the pipeline for a client and stores the result
func (s *Service) Generate(clientID string, in Input) (*Report, error) {
	logger := log.With().
		Str("client_id", clientID).
		Str("service", "report").
		Logger()

	logger.Info().
		Int("deals", in.Deals.Len()).
		Int("excluded", len(in.Excluded)).
		Int("vip", len(in.VIP)).
		Msg("starting report run")

	result, err := Run(in)
	if err != nil {
		logger.Error().Err(err).Msg("report run failed")
		return nil, err
	}

	rep := &Report{
		ID:        "RPT_" + uuid.New().String(),
		ClientID:  clientID,
		Result:    result,
		CreatedAt: time.Now(),
	}
	s.reports.SetDefault(rep.ID, rep)

	totalA, _ := result.FinalCalculations.Lookup("Total A Book", "Sum of above two values")
	totalB, _ := result.FinalCalculations.Lookup("Total B Book", "Sum of above two values")
	logger.Info().
		Str("report_id", rep.ID).
		Float64("total_a_book", totalA).
		Float64("total_b_book", totalB).
		Float64("vip_volume", result.VIPVolume).
		Msg("report completed")

	return rep, nil
}

// Get returns a stored report owned by clientID
func (s *Service) Get(reportID, clientID string) (*Report, error) {
	v, ok := s.reports.Get(reportID)
	if !ok {
		return nil, ErrReportNotFound
	}
	rep := v.(*Report)
	if rep.ClientID != clientID {
		return nil, ErrReportNotFound
	}
	return rep, nil
}

// Workbook renders every result table of a report as one XLSX workbook
func (s *Service) Workbook(rep *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rep.Result.Tables()); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ToResponse converts a report into its API representation
func ToResponse(rep *Report) types.ReportResponse {
	calcs := rep.Result.FinalCalculations
	totalA, _ := calcs.Lookup("Total A Book", "Sum of above two values")
	totalB, _ := calcs.Lookup("Total B Book", "Sum of above two values")
	lots, _ := calcs.Lookup("Total Volume", "A Book + B Book")

	sheets := rep.Result.Tables()
	tables := make([]types.TableData, 0, len(sheets))
	for _, s := range sheets {
		tables = append(tables, types.TableData{Name: s.Name, Columns: s.Table.Columns, Rows: s.Table.Rows})
	}

	return types.ReportResponse{
		ReportID:   rep.ID,
		ClientID:   rep.ClientID,
		DateRange:  rep.Result.DateRange,
		VIPVolume:  rep.Result.VIPVolume,
		TotalABook: totalA,
		TotalBBook: totalB,
		TotalLots:  lots,
		Tables:     tables,
		CreatedAt:  rep.CreatedAt,
	}
}

// GinHandlers contains HTTP handlers for report endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for report endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateReportHandler handles multipart uploads of a deals export plus
// optional excluded and VIP login lists
func (h *GinHandlers) GenerateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		clientID := auth.GetClientID(claims)
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		dealsFile, err := c.FormFile("deals")
		if err != nil {
			response.BadRequest(c, "deals file is required")
			return
		}
		deals, err := readUpload(dealsFile)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		excluded, err := readLoginList(c, "excluded")
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		vip, err := readLoginList(c, "vip")
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		rep, err := h.service.Generate(clientID, Input{
			Deals:    deals,
			Excluded: excluded,
			VIP:      vip,
			Start:    c.PostForm("start"),
			End:      c.PostForm("end"),
		})
		if err != nil {
			if errors.Is(err, ErrMissingColumn) || errors.Is(err, ErrInvalidDateFormat) {
				err = response.Invalid(err)
			}
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, ToResponse(rep))
	}
}

// GetReportHandler handles GET requests for a stored report
func (h *GinHandlers) GetReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		rep, err := h.service.Get(c.Param("report_id"), auth.GetClientID(claims))
		if err != nil {
			response.NotFound(c, "Report not found")
			return
		}

		response.Success(c, ToResponse(rep))
	}
}

// DownloadReportHandler streams a stored report as an XLSX workbook
func (h *GinHandlers) DownloadReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}

		rep, err := h.service.Get(c.Param("report_id"), auth.GetClientID(claims))
		if err != nil {
			response.NotFound(c, "Report not found")
			return
		}

		data, err := h.service.Workbook(rep)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, rep.ID))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

func readUpload(fh *multipart.FileHeader) (*table.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	t, err := table.Read(fh.Filename, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return t, nil
}

// readLoginList reads an optional headerless login list. A missing or empty
// file yields an empty set.
func readLoginList(c *gin.Context, field string) (map[string]struct{}, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return map[string]struct{}{}, nil
	}
	t, err := readUpload(fh)
	if errors.Is(err, table.ErrNoHeader) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	return table.SetFromColumn(t), nil
}
