package handler

import (
	"strconv"

	"socialvibe/backend/internal/repository"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 100000
)

// pageFromQuery reads page and limit. Without either parameter the whole list
// is returned, as older clients expect.
func pageFromQuery(c *gin.Context) repository.Page {
	rawPage, hasPage := c.GetQuery("page")
	rawLimit, hasLimit := c.GetQuery("limit")
	if !hasPage && !hasLimit {
		return repository.Page{}
	}

	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	limit, err := strconv.Atoi(rawLimit)
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return repository.Page{Page: page, Limit: limit}
}

// setPaginationHeaders reports the total item count alongside a plain array body.
func setPaginationHeaders(c *gin.Context, total int64, page repository.Page) {
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	if page.Limit > 0 {
		pages := (total + int64(page.Limit) - 1) / int64(page.Limit)
		c.Header("X-Total-Pages", strconv.FormatInt(pages, 10))
		c.Header("X-Page", strconv.Itoa(page.Page))
	}
}
