package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type OrderController struct {
	orders *services.OrderService
	stats  *services.StatsService
}

func NewOrderController(o *services.OrderService, s *services.StatsService) *OrderController {
	return &OrderController{orders: o, stats: s}
}

func (oc *OrderController) Store(c *ctx.Context) {
	var in services.OrderInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := oc.orders.Create(c.Context(), caller(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(order)
}

// Index lists the caller's own orders.
func (oc *OrderController) Index(c *ctx.Context) {
	orders, err := oc.orders.ListMine(c.Context(), caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

func (oc *OrderController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	order, err := oc.orders.Get(c.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.StatusInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := oc.orders.UpdateStatus(c.Context(), caller(c), id, in.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) Pay(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	order, err := oc.orders.MarkPaid(c.Context(), caller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

func (oc *OrderController) AdminIndex(c *ctx.Context) {
	orders, page, err := oc.orders.ListAll(c.Context(), pagination(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{"orders": orders, "pagination": page})
}

func (oc *OrderController) Stats(c *ctx.Context) {
	st, err := oc.stats.Dashboard(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(st)
}
