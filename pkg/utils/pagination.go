package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetLimit reads the "limit" query parameter. Missing or invalid values fall
// back to defaultLimit and anything above maxLimit is capped.
func GetLimit(c echo.Context, defaultLimit, maxLimit int) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
