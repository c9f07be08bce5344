// Package apiclient - HTTP-клиент REST-бэкенда платформы.
//
// Клиент знает базовый адрес, подставляет токен сессии в заголовок
// Authorization и разбирает конверт ответа {"status","data","error"}.
// Неуспешные статусы превращаются в *Error одного из классов ErrUnauthorized,
// ErrForbidden, ErrNotFound, ErrConflict, ErrValidation или ErrTransport.
// Повторов нет: единственная политика ожидания - таймаут http.Client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/lib/metrics"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
)

// Credentials - источник токена для запросов от имени пользователя.
// HandleUnauthorized вызывается на любой ответ 401.
type Credentials interface {
	Token() string
	HandleUnauthorized(ctx context.Context)
}

// Client - клиент REST-бэкенда. Безопасен для конкурентного использования.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    Credentials
	validate *validator.Validate
	log      *slog.Logger
}

// New создаёт клиента для бэкенда по адресу baseURL.
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(),
		log:      log,
	}
}

// WithCredentials возвращает копию клиента, которая действует от имени сессии.
func (c *Client) WithCredentials(creds Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
	out      any
	// token задаёт токен явно, минуя Credentials; тогда 401 не вызывает HandleUnauthorized.
	token string
}

// check проверяет тело запроса до отправки.
func (c *Client) check(op string, v any) error {
	if err := c.validate.Struct(v); err != nil {
		msg := err.Error()
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			msg = "invalid fields: " + strings.Join(fields, ", ")
		}
		return fmt.Errorf("%s: %w", op, &Error{Message: msg, kind: ErrValidation})
	}
	return nil
}

func (c *Client) do(ctx context.Context, op string, cl call) error {
	start := time.Now()
	err := c.roundTrip(ctx, cl)
	metrics.APIDuration.WithLabelValues(cl.endpoint).Observe(time.Since(start).Seconds())
	metrics.APIRequests.WithLabelValues(cl.endpoint, Outcome(err)).Inc()

	if err != nil {
		if errors.Is(err, ErrUnauthorized) && cl.token == "" && c.creds != nil {
			c.creds.HandleUnauthorized(ctx)
		}
		c.log.Debug("api request failed",
			slog.String("op", op),
			slog.String("endpoint", cl.endpoint),
			slog.String("outcome", Outcome(err)),
			sl.Err(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, cl call) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return &Error{Message: err.Error(), kind: ErrValidation}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return &Error{Message: err.Error(), kind: ErrTransport}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := cl.token
	if token == "" && c.creds != nil {
		token = c.creds.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: err.Error(), kind: ErrTransport}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: err.Error(), kind: ErrTransport}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: env.Error, kind: classify(resp.StatusCode)}
	}
	if decodeErr != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "malformed response body", kind: ErrTransport}
	}
	if cl.out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, cl.out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "malformed response data", kind: ErrTransport}
	}
	return nil
}
