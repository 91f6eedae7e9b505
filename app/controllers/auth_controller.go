package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(a *services.AuthService) *AuthController {
	return &AuthController{auth: a}
}

func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	sess, err := ac.auth.Register(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	setAuthCookie(c, sess.Token)
	c.Created(sess)
}

func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	sess, err := ac.auth.Login(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	setAuthCookie(c, sess.Token)
	c.Success(sess)
}

func (ac *AuthController) Logout(c *ctx.Context) {
	c.SetCookie(&http.Cookie{
		Name:     config.AuthCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Message("Logged out successfully")
}

func (ac *AuthController) Me(c *ctx.Context) {
	u, err := ac.auth.Me(c.Context(), caller(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (ac *AuthController) UpdateMe(c *ctx.Context) {
	var in services.ProfileInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := ac.auth.UpdateProfile(c.Context(), caller(c).UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func setAuthCookie(c *ctx.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     config.AuthCookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(config.JWTTTL().Seconds()),
		HttpOnly: true,
		Secure:   config.AppEnv() == "production",
		SameSite: http.SameSiteLaxMode,
	})
}
