package http

import "github.com/labstack/echo/v4"

// Handler registers its routes on the shared Echo instance. The server
// accepts any implementation, so handlers stay decoupled from server
// setup.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
