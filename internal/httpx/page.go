package httpx

import (
	"net/http"
	"strconv"
)

// Page mirrors the paged envelope the front end already consumes:
// content plus enough numbers to draw a pager.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

func NewPage[T any](content []T, page, size int, total int64) *Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return &Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

type Pageable struct {
	Page int
	Size int
}

func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// PageableFromRequest reads page/size query params with sane bounds.
func PageableFromRequest(r *http.Request) Pageable {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 0 {
		page = 0
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return Pageable{Page: page, Size: size}
}
