package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

// policyMiddleware rejects requests whose principal's role may not perform
// op. Services re-check authorization on operations that carry the principal;
// this guards the ones that do not.
func policyMiddleware(op core.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if err = core.Authorize(p, op); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
