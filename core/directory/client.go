package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/m-mizutani/goerr/v2"
)

// ErrUnavailable marks transport faults, timeouts and 5xx answers from the user directory.
var ErrUnavailable = errors.New("user directory unavailable")

// StatusError is a non-2xx, non-5xx answer from the user directory.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("user directory returned status %d", e.Code)
}

type Company struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type UserValidation struct {
	UserID    uuid.UUID `json:"user_id"`
	CompanyID uuid.UUID `json:"company_id"`
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

func (c *Client) CompanyByName(ctx context.Context, name string) (*Company, error) {
	var company Company
	endpoint := c.baseURL + "/company/by-name/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &company); err != nil {
		return nil, err
	}
	if company.ID.IsNil() {
		return nil, goerr.New("directory returned company without id", goerr.V("name", name))
	}
	return &company, nil
}

func (c *Client) CompaniesByEmail(ctx context.Context, email string) ([]Company, error) {
	var companies []Company
	endpoint := c.baseURL + "/user/companies?" + url.Values{"email": {email}}.Encode()
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (c *Client) ValidateUser(ctx context.Context, email string, companyID uuid.UUID) (*UserValidation, error) {
	body := map[string]string{
		"email":      email,
		"company_id": companyID.String(),
	}
	var res UserValidation
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/user/validate", body, &res); err != nil {
		return nil, err
	}
	if res.UserID.IsNil() {
		return nil, goerr.New("directory validated user without id", goerr.V("company_id", companyID))
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return goerr.Wrap(err, "failed to encode directory request")
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return goerr.Wrap(err, "failed to create directory request", goerr.V("url", endpoint))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(ErrUnavailable, err.Error(), goerr.V("url", endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return goerr.Wrap(ErrUnavailable, "directory server error", goerr.V("status", resp.StatusCode), goerr.V("url", endpoint))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// a body cut short by the deadline is still an availability problem
		if ctx.Err() != nil {
			return goerr.Wrap(ErrUnavailable, "directory response timed out", goerr.V("url", endpoint))
		}
		return goerr.Wrap(err, "failed to decode directory response", goerr.V("url", endpoint))
	}
	return nil
}
