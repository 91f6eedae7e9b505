package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// UserController is the admin user management surface.
type UserController struct {
	users *services.UserService
}

func NewUserController(u *services.UserService) *UserController {
	return &UserController{users: u}
}

func (uc *UserController) Index(c *ctx.Context) {
	users, page, err := uc.users.List(c.Context(), pagination(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{"users": users, "pagination": page})
}

func (uc *UserController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	u, err := uc.users.Get(c.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (uc *UserController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.UserUpdateInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := uc.users.Update(c.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (uc *UserController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := uc.users.Delete(c.Context(), caller(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("User removed")
}
