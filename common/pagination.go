package common

import (
	"net/http"
	"strconv"
)

const defaultPageSize = 10
const maxPageSize = 100

// Pagination carries the parsed page/limit query parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request) Pagination {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
