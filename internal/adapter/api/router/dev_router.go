package router

import (
	"github.com/labstack/echo/v4"

	"petadopt/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, devHandler *handler.DevTokenHandler) {
	if devHandler == nil {
		return
	}

	e.POST("/_dev/token", devHandler.GenerateToken)
	e.POST("/_dev/listings", devHandler.CreateListing)
}
