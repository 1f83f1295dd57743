package middleware

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderOperator  = "X-Operator"
)

type requestInfoKey struct{}

// RequestInfo is the per-request state carried in the request context
type RequestInfo struct {
	ID       string
	Operator string
}

// WithRequestInfo stores info on ctx
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the info stored on ctx, if any
func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// RequestID returns the request id stored on ctx or ""
func RequestID(ctx context.Context) string {
	info, _ := RequestInfoFrom(ctx)
	return info.ID
}

// RequestContext assigns every request an id (reusing a sane inbound
// X-Request-ID) and records the operator label sent by the front desk.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			id := strings.TrimSpace(req.Header.Get(HeaderRequestID))
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}

			info := RequestInfo{
				ID:       id,
				Operator: strings.TrimSpace(req.Header.Get(HeaderOperator)),
			}
			c.SetRequest(req.WithContext(WithRequestInfo(req.Context(), info)))
			c.Response().Header().Set(HeaderRequestID, id)

			return next(c)
		}
	}
}
