// Package ouvidoria is a client of the Escuta Piaget HTTP API.
// It implements the collaborators of form.Controller.
package ouvidoria

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/form"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/ticket"
)

const (
	questionsEndpoint = "/v1/questions"
	ticketsEndpoint   = "/v1/tickets"
	defaultTimeout    = 15 * time.Second
)

var (
	_ form.QuestionSource = (*Client)(nil)
	_ form.TicketCreator  = (*Client)(nil)
)

// StatusError is returned for any non 2xx response the client cannot map to a validation error.
type StatusError struct {
	Code int
	Body string
}

func (err StatusError) Error() string {
	return "ouvidoria API status: " + http.StatusText(err.Code) + " - body: " + err.Body
}

type Client struct {
	baseURL string
	timeout time.Duration
	logger  core.Logger
}

func NewClient(baseURL string, logger core.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		logger:  logger,
	}
}

func (c *Client) request(method rest.Method, endpoint string) rest.Request {
	return rest.Request{
		Method:  method,
		BaseURL: c.baseURL + endpoint,
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
	}
}

func (c *Client) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s %s", req.Method, req.BaseURL)
	}
	httpRes, err := rest.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}
	// BuildResponse closes the body
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s %s", req.Method, req.BaseURL)
	}
	return res, nil
}

// Questions fetches the questions of `category`, always bypassing caches.
func (c *Client) Questions(ctx context.Context, category string) ([]question.Question, error) {
	req := c.request(rest.Get, questionsEndpoint)
	req.Headers["Cache-Control"] = "no-cache"
	req.QueryParams = map[string]string{"category": category}

	res, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, StatusError{Code: res.StatusCode, Body: res.Body}
	}
	var qs []question.Question
	if err = json.Unmarshal([]byte(res.Body), &qs); err != nil {
		return nil, errors.Wrap(err, "decoding questions")
	}
	c.logger.Debug("questions fetched", map[string]interface{}{"category": category, "count": len(qs)})
	return qs, nil
}

// CreateTicket files sub. A 400 response is returned as a *core.ValidationError.
func (c *Client) CreateTicket(ctx context.Context, sub ticket.Submission) (ticket.Receipt, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return ticket.Receipt{}, errors.Wrap(err, "encoding submission")
	}
	req := c.request(rest.Post, ticketsEndpoint)
	req.Body = body

	res, err := c.send(ctx, req)
	if err != nil {
		return ticket.Receipt{}, err
	}
	switch {
	case res.StatusCode == http.StatusBadRequest:
		return ticket.Receipt{}, validationError(res.Body)
	case res.StatusCode >= 300:
		return ticket.Receipt{}, StatusError{Code: res.StatusCode, Body: res.Body}
	}
	var rcpt ticket.Receipt
	if err = json.Unmarshal([]byte(res.Body), &rcpt); err != nil {
		return ticket.Receipt{}, errors.Wrap(err, "decoding receipt")
	}
	return rcpt, nil
}

// validationError decodes the API error body: either {"error": msg} or {field: msg, ...}.
func validationError(body string) error {
	var fields map[string]string
	if err := json.Unmarshal([]byte(body), &fields); err != nil || len(fields) == 0 {
		return core.NewValidationError(errors.New(strings.TrimSpace(body)))
	}
	if msg, ok := fields["error"]; ok && len(fields) == 1 {
		return core.NewValidationError(errors.New(msg))
	}
	flds := make([]core.FieldError, 0, len(fields))
	for field, msg := range fields {
		flds = append(flds, core.FieldError{Field: field, Error: msg})
	}
	sort.Slice(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
	return core.NewValidationError(nil, flds...)
}
