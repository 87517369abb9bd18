package models

// Requests for correlation HTTP endpoints. Defined in domain for consistency and reuse.

type CorrelationsRequest struct {
	Sector string `param:"sector" json:"sector" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type RecomputeRequest struct {
	Sector string `param:"sector" json:"sector" validate:"required"`
}
