package rest

import (
	"context"
	"net/http"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	var session domain.Session
	err := c.do(ctx, call{
		operation: "login",
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      jsonBody(creds),
		once:      true,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.Session, error) {
	var session domain.Session
	err := c.do(ctx, call{
		operation: "register",
		method:    http.MethodPost,
		path:      "/auth/register",
		body:      jsonBody(reg),
		once:      true,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, call{
		operation: "me",
		method:    http.MethodGet,
		path:      "/auth/me",
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Logout(ctx context.Context) error {
	var ack messageResponse
	return c.do(ctx, call{
		operation: "logout",
		method:    http.MethodPost,
		path:      "/auth/logout",
		once:      true,
	}, &ack)
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	var ack messageResponse
	return c.do(ctx, call{
		operation: "change_password",
		method:    http.MethodPut,
		path:      "/auth/change-password",
		body: jsonBody(map[string]string{
			"current_password": current,
			"new_password":     next,
		}),
		once: true,
	}, &ack)
}
