package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// Pagination bounds for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	errInvalidOffset = apperrors.Wrap(apperrors.ErrInvalidInput, "offset must be a non-negative integer")
	errInvalidLimit  = apperrors.Wrap(apperrors.ErrInvalidInput, "limit must be between 1 and 100")
)

// ParsePagination reads the offset and limit query parameters.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, errInvalidOffset
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 || limit > MaxLimit {
		return 0, 0, errInvalidLimit
	}

	return offset, limit, nil
}
