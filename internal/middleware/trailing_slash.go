// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// StripTrailingSlash redirects requests with trailing slashes to the canonical
// URL without. Register it with echo.Pre so it runs before routing. POST
// bodies survive the redirect because 308 preserves the method.
func StripTrailingSlash() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			path := r.URL.Path
			if path != "/" && strings.HasSuffix(path, "/") {
				newURL := strings.TrimRight(path, "/")
				if newURL == "" {
					newURL = "/"
				}
				if r.URL.RawQuery != "" {
					newURL += "?" + r.URL.RawQuery
				}
				return c.Redirect(http.StatusPermanentRedirect, newURL)
			}
			return next(c)
		}
	}
}
