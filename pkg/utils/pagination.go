package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
	MaxLimit     = 100
)

type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// Page is the metadata reported alongside a listing.
type Page struct {
	Page       int
	Limit      int
	Total      int64
	IsNext     bool
	IsPrevious bool
}

func ParsePagination(c *fiber.Ctx) PaginationParams {
	return NewPagination(c.Query("page"), c.Query("limit"))
}

// NewPagination normalizes raw page/limit values. Anything unparsable or
// below one falls back to the default.
func NewPagination(rawPage, rawLimit string) PaginationParams {
	page := parseIntDefault(rawPage, DefaultPage)
	limit := parseIntDefault(rawLimit, DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func (p PaginationParams) Describe(total int64) Page {
	return Page{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		IsNext:     total > int64(p.Page)*int64(p.Limit),
		IsPrevious: p.Page > 1,
	}
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
