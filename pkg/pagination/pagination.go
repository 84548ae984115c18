package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/parking-lot/pkg/common"
)

const (
	// DefaultLimit is the page size used when only offset is given
	DefaultLimit = 20
	// MaxLimit is the maximum number of items per page
	MaxLimit = 100
)

// Params represents pagination parameters
type Params struct {
	Limit  int
	Offset int
}

// ParseParams reads ?limit and ?offset. ok is false when the caller asked
// for neither, meaning the whole list should be returned.
func ParseParams(c *gin.Context) (params Params, ok bool) {
	rawLimit, hasLimit := c.GetQuery("limit")
	rawOffset, hasOffset := c.GetQuery("offset")
	if !hasLimit && !hasOffset {
		return Params{}, false
	}

	params.Limit, _ = strconv.Atoi(rawLimit)
	params.Offset, _ = strconv.Atoi(rawOffset)

	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	if params.Limit > MaxLimit {
		params.Limit = MaxLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	return params, true
}

// Page returns the window of items selected by params
func Page[T any](items []T, params Params) []T {
	if params.Offset >= len(items) {
		return []T{}
	}
	end := params.Offset + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[params.Offset:end]
}

// BuildMeta creates pagination metadata for responses
func BuildMeta(limit, offset int, total int64) *common.Meta {
	meta := &common.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  total,
	}

	if limit > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(limit)))
	}

	return meta
}

// HasMore checks if there are more items available
func HasMore(offset, limit int, total int64) bool {
	return int64(offset+limit) < total
}
