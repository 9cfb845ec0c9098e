package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

type questionApi struct {
	svc *question.Service
}

func registerQuestionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *question.Service) {
	api := questionApi{svc: svc}

	// public endpoints
	qg := g.Group("/questions", noStore)
	qg.GET("", api.queryForm)
	qg.POST("/active", api.resolve)

	// admin endpoints
	ag := g.Group("/admin/questions", jwt, adminMiddleware())
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

// Handlers

func (api *questionApi) queryForm(ctx echo.Context) error {
	qs, err := api.svc.QueryByCategory(ctx.Request().Context(), ctx.QueryParam("category"))
	if err != nil {
		return errors.Wrap(err, "querying form questions")
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *questionApi) resolve(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}
	if data.Answers == nil {
		data.Answers = question.Answers{}
	}

	set, err := api.svc.Resolve(ctx.Request().Context(), data.Category, data.Answers)
	if err != nil {
		return errors.Wrap(err, "resolving active questions")
	}
	if set.Questions == nil {
		set.Questions = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, set)
}

func (api *questionApi) query(ctx echo.Context) error {
	qs, err := api.svc.Query(ctx.Request().Context(), ctx.QueryParam("category"))
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *questionApi) create(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	q, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding question by ID")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) update(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	q, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type ResolveRequest struct {
	Category string           `json:"category"`
	Answers  question.Answers `json:"answers"`
}
