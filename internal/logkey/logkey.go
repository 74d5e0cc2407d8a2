// Package logkey holds the attribute names shared by every slog call site.
package logkey

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	TraceID   = "TRACE ID"
	ERROR     = "ERROR"
	UserID    = "UserID"
	OrderID   = "OrderID"
	ProductID = "ProductID"
	Path      = "Path"
	Status    = "Status"
	EventType = "EventType"
)

// TraceFrom returns the request id chi assigned to ctx, or "".
func TraceFrom(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
