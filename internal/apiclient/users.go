package apiclient

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/internal/auth"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

var _ auth.API = (*Client)(nil)

func (c *Client) Login(ctx context.Context, creds auth.Credentials) (auth.Tokens, error) {
	var out auth.Tokens
	if err := c.do(ctx, request{endpoint: "users.login", method: http.MethodPost, path: "users/login/", body: creds}, &out); err != nil {
		return auth.Tokens{}, err
	}
	if out.Access == "" {
		return auth.Tokens{}, pkgerrors.New(pkgerrors.CodeDependency, "login response carried no access token")
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, input auth.RegisterInput) (auth.User, error) {
	var out auth.User
	err := c.do(ctx, request{endpoint: "users.register", method: http.MethodPost, path: "users/register/", body: input}, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, accessToken string) (auth.User, error) {
	if accessToken == "" {
		return auth.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token is required")
	}
	var out auth.User
	err := c.do(ctx, request{endpoint: "users.profile", method: http.MethodGet, path: "users/profile/", token: accessToken}, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, accessToken string, input auth.ProfileInput) (auth.User, error) {
	if accessToken == "" {
		return auth.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token is required")
	}
	var out auth.User
	err := c.do(ctx, request{endpoint: "users.update_profile", method: http.MethodPut, path: "users/profile/", body: input, token: accessToken}, &out)
	return out, err
}
