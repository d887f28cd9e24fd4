package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
)

const (
	treeEndpoint     = "/parrainage/arbre"
	infoEndpoint     = "/parrainage"
	filleulsEndpoint = "/parrainage/filleuls"
	messageEndpoint  = "/parrainage/message"

	defaultErrMessage         = "Une erreur est survenue"
	connectionErrMessage      = "Erreur de connexion au serveur"
	invalidResponseErrMessage = "Réponse invalide du serveur"
)

// APIError is an error answered by the driving-school API.
// Status is 0 when the API could not be reached, and 502 when a successful answer could not be decoded.
type APIError struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Err     error               `json:"-"`
}

func (err *APIError) Error() string {
	if err.Status == 0 {
		return fmt.Sprintf("%s: %v", err.Message, err.Err)
	}
	if err.Err != nil {
		return fmt.Sprintf("api error %d: %s: %v", err.Status, err.Message, err.Err)
	}
	return fmt.Sprintf("api error %d: %s", err.Status, err.Message)
}

func (err *APIError) Unwrap() error { return err.Err }

// Client talks to the driving-school REST API on behalf of a user (bearer token).
type Client struct {
	baseURL string
	http    *rest.Client
}

var _ referral.Repository = (*Client)(nil)

func NewClient(conf core.UpstreamConfig, httpClient ...*http.Client) *Client {
	hc := &http.Client{Timeout: conf.Timeout}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	return &Client{
		baseURL: conf.BaseURL,
		http:    &rest.Client{HTTPClient: hc},
	}
}

func (c *Client) request(method rest.Method, endpoint, token string, query map[string]string) rest.Request {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + endpoint,
		Headers:     headers,
		QueryParams: query,
	}
}

// do sends req and decodes a successful JSON answer into out.
func (c *Client) do(ctx context.Context, req rest.Request, out interface{}) error {
	res, err := c.http.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{Message: connectionErrMessage, Err: err}
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: res.StatusCode}
		var body struct {
			Message string              `json:"message"`
			Errors  map[string][]string `json:"errors"`
		}
		if json.Unmarshal([]byte(res.Body), &body) == nil {
			apiErr.Message = body.Message
			apiErr.Errors = body.Errors
		}
		if apiErr.Message == "" {
			apiErr.Message = defaultErrMessage
		}
		return apiErr
	}

	if err := json.Unmarshal([]byte(res.Body), out); err != nil {
		return &APIError{
			Status:  http.StatusBadGateway,
			Message: invalidResponseErrMessage,
			Err:     errors.Wrapf(err, "decoding %d response", res.StatusCode),
		}
	}
	return nil
}

// FetchTree returns the user's referral tree, depth generations deep.
// A nil tree is returned when the API has none (`success: false` or `arbre: null`).
func (c *Client) FetchTree(ctx context.Context, token string, depth int) (*referral.Node, error) {
	req := c.request(rest.Get, treeEndpoint, token, map[string]string{"profondeur": strconv.Itoa(depth)})
	var body struct {
		Success bool            `json:"success"`
		Tree    json.RawMessage `json:"arbre"`
	}
	if err := c.do(ctx, req, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, nil
	}
	return referral.ParseTree(body.Tree)
}

func (c *Client) FetchInfo(ctx context.Context, token string) (referral.Info, error) {
	var info referral.Info
	if err := c.do(ctx, c.request(rest.Get, infoEndpoint, token, nil), &info); err != nil {
		return referral.Info{}, err
	}
	if info.Filleuls == nil {
		info.Filleuls = []referral.Filleul{}
	}
	return info, nil
}

func (c *Client) FetchFilleuls(ctx context.Context, token string) ([]referral.Filleul, error) {
	var body struct {
		Success  bool               `json:"success"`
		Filleuls []referral.Filleul `json:"filleuls"`
		Total    int                `json:"total"`
	}
	if err := c.do(ctx, c.request(rest.Get, filleulsEndpoint, token, nil), &body); err != nil {
		return nil, err
	}
	if !body.Success || body.Filleuls == nil {
		return []referral.Filleul{}, nil
	}
	return body.Filleuls, nil
}

func (c *Client) FetchShareMessage(ctx context.Context, token string) (string, error) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, c.request(rest.Get, messageEndpoint, token, nil), &body); err != nil {
		return "", err
	}
	return body.Message, nil
}
