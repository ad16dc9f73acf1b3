package router

import (
	"github.com/labstack/echo/v4"
)

// Route is one row of a router's route table.
type Route struct {
	Method     string
	Path       string
	Handler    echo.HandlerFunc
	Middleware []echo.MiddlewareFunc
}

type Registrar interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
}

func register(r Registrar, routes []Route) {
	for _, route := range routes {
		r.Add(route.Method, route.Path, route.Handler, route.Middleware...)
	}
}
