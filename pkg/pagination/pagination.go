package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context.
// Both page/limit (1-based page number) and limit/offset styles are
// accepted; page takes precedence when present.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if page, _ := strconv.Atoi(c.QueryParam("page")); page > 0 {
		return Params{Limit: limit, Offset: (page - 1) * limit}
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Page returns the 1-based page number for the current offset.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Response wraps a paginated API response in the platform envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	return &Response{
		Success: true,
		Data:    data,
		Total:   total,
		Page:    p.Page(),
		Limit:   p.Limit,
		HasMore: p.HasNext(total),
	}
}
