package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/user"
)

type ticketApi struct {
	svc    *ticket.Service
	usrSvc *user.Service
}

func registerTicketAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *ticket.Service, usrSvc *user.Service) {
	api := ticketApi{svc: svc, usrSvc: usrSvc}

	// public endpoints
	// TODO: rate limit ticket creation per client IP
	tg := g.Group("/tickets")
	tg.POST("", api.create)
	tg.GET("/:protocol", api.status)

	// staff endpoints
	ag := g.Group("/admin/tickets", jwt, staffMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PATCH("/:id", api.updateStatus)
	ag.POST("/:id/response", api.respond)
}

// Handlers

func (api *ticketApi) create(ctx echo.Context) error {
	var data ticket.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating ticket")
	}
	return ctx.JSON(http.StatusCreated, t.Receipt())
}

func (api *ticketApi) status(ctx echo.Context) error {
	t, err := api.svc.GetByProtocol(ctx.Request().Context(), ctx.Param("protocol"))
	if err != nil {
		return errors.Wrap(err, "finding ticket by protocol")
	}
	return ctx.JSON(http.StatusOK, newStatusResponse(t))
}

func (api *ticketApi) query(ctx echo.Context) error {
	filter := new(ticket.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ticket.Ticket{})
	}

	tickets, err := api.svc.Query(ctx.Request().Context(), *filter, bindOrderings(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying tickets")
	}
	if tickets == nil {
		tickets = []ticket.Ticket{}
	}
	return ctx.JSON(http.StatusOK, tickets)
}

func (api *ticketApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding ticket by ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *ticketApi) updateStatus(ctx echo.Context) error {
	var data ticket.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	t, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating ticket status")
	}
	api.logAction(ctx, "ticket status updated", t)
	return ctx.JSON(http.StatusOK, t)
}

func (api *ticketApi) respond(ctx echo.Context) error {
	var data ticket.Response
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Response")
	}
	t, err := api.svc.Respond(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "responding ticket")
	}
	api.logAction(ctx, "ticket answered", t)
	return ctx.JSON(http.StatusOK, t)
}

func (api *ticketApi) logAction(ctx echo.Context, msg string, t ticket.Ticket) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return
	}
	ctx.Logger().Infoj(map[string]interface{}{
		"message":  msg,
		"protocol": t.Protocol,
		"status":   t.Status,
		"user":     usr.ID,
	})
}

// StatusResponse is what reporters see when they look a ticket up by protocol.
type StatusResponse struct {
	Protocol    string        `json:"protocol"`
	Type        ticket.Type   `json:"type"`
	Status      ticket.Status `json:"status"`
	Deadline    string        `json:"deadline"`
	CreatedAt   time.Time     `json:"created_at"`
	Response    string        `json:"response,omitempty"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
}

func newStatusResponse(t ticket.Ticket) StatusResponse {
	res := StatusResponse{
		Protocol:  t.Protocol,
		Type:      t.Type,
		Status:    t.Status,
		Deadline:  t.Deadline.Format(ticket.DeadlineLayout),
		CreatedAt: t.CreatedAt,
		Response:  t.Response,
	}
	if !t.RespondedAt.IsZero() {
		respondedAt := t.RespondedAt
		res.RespondedAt = &respondedAt
	}
	return res
}
