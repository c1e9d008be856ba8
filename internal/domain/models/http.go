package models

// LocateRequest is the HTTP payload for POST /api/locate.
type LocateRequest struct {
	Ticker        string `json:"ticker" validate:"required,min=1,max=12"`
	PositionValue string `json:"position_value" validate:"required"`
	LoanDays      int    `json:"loan_days" validate:"required,gt=0"`
	ClientID      string `json:"client_id" validate:"required,min=1,max=64"`
}

// AuditQueryRequest filters the audit log listing.
type AuditQueryRequest struct {
	Ticker   string `query:"ticker"`
	ClientID string `query:"client_id"`
	From     string `query:"from"`
	To       string `query:"to"`
	Limit    int    `query:"limit" default:"100" validate:"omitempty,min=1,max=1000"`
}
