// Package listing implements the pagination, search, sort, and derived-count
// conventions shared by every collection endpoint.
package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/runcrew/runcrew-backend/internal/httputil"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	// MaxLimit caps page size so enrichment stays cheap.
	MaxLimit = 100
	// MaxOffset bounds (page-1)*limit.
	MaxOffset = math.MaxInt32

	DefaultSort = "created_at"
)

// Spec describes how one resource may be searched, sorted, and filtered.
// Column names come from code, never from the request.
type Spec struct {
	SearchColumns []string
	// SortColumns maps the accepted sortBy values to table columns.
	SortColumns map[string]string
	// DefaultSort is a key of SortColumns; DefaultSort ("created_at") when empty.
	DefaultSort string
	// StatusColumn is matched by equality against the status parameter.
	// Empty means the resource does not support status filtering.
	StatusColumn string
}

// Params are the validated list query parameters.
type Params struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
	Status    string
}

// Pagination is attached to every collection response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// TotalPages is ceil(total/limit); zero rows means zero pages.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func NewPagination(p Params, total int64) Pagination {
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: TotalPages(total, p.Limit),
	}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads list parameters from a query string. limit and pageSize are
// synonyms; limit wins when both are present.
func Parse(values url.Values, spec Spec) (Params, error) {
	p := Params{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    spec.defaultSort(),
		SortOrder: "desc",
	}

	var err error
	if p.Page, err = positiveInt(values.Get("page"), DefaultPage); err != nil {
		return Params{}, httputil.BadRequest("page는 1 이상의 정수여야 합니다")
	}

	rawLimit := values.Get("limit")
	if rawLimit == "" {
		rawLimit = values.Get("pageSize")
	}
	if p.Limit, err = positiveInt(rawLimit, DefaultLimit); err != nil {
		return Params{}, httputil.BadRequest("limit는 1 이상의 정수여야 합니다")
	}
	if p.Limit > MaxLimit {
		return Params{}, httputil.BadRequest("limit는 100 이하여야 합니다")
	}
	if p.Page-1 > MaxOffset/p.Limit {
		return Params{}, httputil.BadRequest("page가 너무 큽니다")
	}

	if sortBy := strings.TrimSpace(values.Get("sortBy")); sortBy != "" {
		if _, ok := spec.SortColumns[sortBy]; !ok {
			return Params{}, httputil.BadRequest("지원하지 않는 정렬 기준입니다: " + sortBy)
		}
		p.SortBy = sortBy
	}

	switch order := strings.ToLower(strings.TrimSpace(values.Get("sortOrder"))); order {
	case "":
	case "asc", "desc":
		p.SortOrder = order
	default:
		return Params{}, httputil.BadRequest("sortOrder는 asc 또는 desc여야 합니다")
	}

	p.Search = normalizeSearch(values.Get("search"))
	p.Status = strings.TrimSpace(values.Get("status"))
	return p, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// normalizeSearch composes Hangul jamo so that input typed on different
// keyboards matches stored text.
func normalizeSearch(raw string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(raw)))
}

func (s Spec) defaultSort() string {
	if s.DefaultSort != "" {
		return s.DefaultSort
	}
	return DefaultSort
}

// likePattern escapes LIKE wildcards in the user's term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// Filter applies the search and status parameters.
func (p Params) Filter(spec Spec) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if p.Search != "" && len(spec.SearchColumns) > 0 {
			pattern := likePattern(p.Search)
			conds := make([]string, len(spec.SearchColumns))
			args := make([]any, len(spec.SearchColumns))
			for i, col := range spec.SearchColumns {
				conds[i] = "LOWER(" + col + ") LIKE ?"
				args[i] = pattern
			}
			q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
		}
		if p.Status != "" && spec.StatusColumn != "" {
			q = q.Where(spec.StatusColumn+" = ?", p.Status)
		}
		return q
	}
}

// Order applies the validated sort. id breaks ties so pages never overlap.
func (p Params) Order(spec Spec) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		col, ok := spec.SortColumns[p.SortBy]
		if !ok {
			col = spec.SortColumns[spec.defaultSort()]
		}
		if col == "" {
			col = DefaultSort
		}
		desc := p.SortOrder != "asc"
		return q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
}

// Find counts the filtered rows and loads the requested page into dest.
// base must already be scoped to the resource's model.
func Find(base *gorm.DB, p Params, spec Spec, dest any) (Pagination, error) {
	q := p.Filter(spec)(base).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	if err := p.Order(spec)(q).
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(dest).Error; err != nil {
		return Pagination{}, err
	}
	return NewPagination(p, total), nil
}
