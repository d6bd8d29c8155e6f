package types

import "time"

// TableData is a result table as returned over the API
type TableData struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ReportResponse represents a generated deal report
type ReportResponse struct {
	ReportID   string      `json:"report_id"`
	ClientID   string      `json:"client_id"`
	DateRange  string      `json:"date_range,omitempty"`
	VIPVolume  float64     `json:"vip_volume"`
	TotalABook float64     `json:"total_a_book"`
	TotalBBook float64     `json:"total_b_book"`
	TotalLots  float64     `json:"total_lots"`
	Tables     []TableData `json:"tables"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IngestResponse represents the outcome of a ledger upload
type IngestResponse struct {
	Kind     string `json:"kind"`
	Received int    `json:"received"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// DiscrepancyResponse represents unmatched deposits between CRM and gateway
type DiscrepancyResponse struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
}
