package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
)

const orderingParam = "ordering"

// bindOrderings reads `?ordering=field1,-field2` (a leading "-" sorts descending).
// Services drop the fields they do not allow.
func bindOrderings(ctx echo.Context) []core.DBOrdering {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return nil
	}

	var orderings []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

// noStore marks a response as never cacheable: forms must always render the latest questions.
func noStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		ctx.Response().Header().Set("Pragma", "no-cache")
		return next(ctx)
	}
}
