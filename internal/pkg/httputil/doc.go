// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers use these helpers instead of writing raw http.ResponseWriter calls
// so the {success, error} envelope stays consistent across all endpoints.
package httputil
