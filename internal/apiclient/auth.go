package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// Login обменивает email и пароль на токен доступа.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	const op = "apiclient.Login"
	if err := c.check(op, creds); err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, op, call{
		endpoint: "auth.login",
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     creds,
		out:      &out,
	})
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Message: "empty token in response", kind: ErrTransport}
	}
	return out.Token, nil
}

// FetchIdentity запрашивает пользователя по явно переданному токену.
// Используется сессией при восстановлении и входе, поэтому 401 здесь не
// вызывает Credentials.HandleUnauthorized.
func (c *Client) FetchIdentity(ctx context.Context, token string) (models.User, error) {
	const op = "apiclient.FetchIdentity"
	if token == "" {
		return models.User{}, &Error{Message: "empty token", kind: ErrUnauthorized}
	}
	var out struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, op, call{
		endpoint: "users.me",
		method:   http.MethodGet,
		path:     "/users/me",
		out:      &out,
		token:    token,
	})
	return out.User, err
}

// Me запрашивает текущего пользователя от имени сессии.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	const op = "apiclient.Me"
	var out struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, op, call{
		endpoint: "users.me",
		method:   http.MethodGet,
		path:     "/users/me",
		out:      &out,
	})
	return out.User, err
}

// GoogleLoginURL возвращает адрес, с которого бэкенд начинает вход через Google.
// Бэкенд вернёт state обратно вместе с одноразовым кодом.
func (c *Client) GoogleLoginURL(state string) string {
	return c.baseURL + "/auth/google/login?" + url.Values{"state": {state}}.Encode()
}

// ExchangeLoginCode обменивает одноразовый код входа через Google на токен доступа.
func (c *Client) ExchangeLoginCode(ctx context.Context, code string) (string, error) {
	const op = "apiclient.ExchangeLoginCode"
	req := models.LoginCodeExchange{Code: code}
	if err := c.check(op, req); err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, op, call{
		endpoint: "auth.google.exchange",
		method:   http.MethodPost,
		path:     "/auth/google/exchange",
		body:     req,
		out:      &out,
	})
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Message: "empty token in response", kind: ErrTransport}
	}
	return out.Token, nil
}

// Register создаёт учётную запись ученика или наставника.
func (c *Client) Register(ctx context.Context, req models.Registration) (models.User, error) {
	const op = "apiclient.Register"
	if err := c.check(op, req); err != nil {
		return models.User{}, err
	}
	return c.userCall(ctx, op, call{
		endpoint: "auth.register",
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     req,
	})
}
