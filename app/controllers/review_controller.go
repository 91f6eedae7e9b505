package controllers

import (
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(r *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: r}
}

func (rc *ReviewController) Ratings(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	ratings, page, err := rc.reviews.Ratings(c.Context(), id, pagination(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{"ratings": ratings, "pagination": page})
}

func (rc *ReviewController) Rate(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.RatingInput
	if !c.BindJSON(&in) {
		return
	}
	r, err := rc.reviews.Rate(c.Context(), caller(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(r)
}

func (rc *ReviewController) UpdateRating(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.RatingInput
	if !c.BindJSON(&in) {
		return
	}
	r, err := rc.reviews.UpdateRating(c.Context(), caller(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(r)
}

func (rc *ReviewController) DeleteRating(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := rc.reviews.DeleteRating(c.Context(), caller(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("Rating removed")
}

func (rc *ReviewController) Comments(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	comments, page, err := rc.reviews.Comments(c.Context(), id, pagination(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{"comments": comments, "pagination": page})
}

func (rc *ReviewController) Comment(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.CommentInput
	if !c.BindJSON(&in) {
		return
	}
	comment, err := rc.reviews.Comment(c.Context(), caller(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(comment)
}

func (rc *ReviewController) UpdateComment(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.CommentInput
	if !c.BindJSON(&in) {
		return
	}
	comment, err := rc.reviews.UpdateComment(c.Context(), caller(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(comment)
}

func (rc *ReviewController) DeleteComment(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := rc.reviews.DeleteComment(c.Context(), caller(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("Comment removed")
}

func (rc *ReviewController) Reply(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.CommentInput
	if !c.BindJSON(&in) {
		return
	}
	comment, err := rc.reviews.Reply(c.Context(), caller(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(comment)
}

func (rc *ReviewController) DeleteReply(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	replyID, ok := c.ParamUint("replyId")
	if !ok {
		return
	}
	if err := rc.reviews.DeleteReply(c.Context(), caller(c), id, replyID); err != nil {
		fail(c, err)
		return
	}
	c.Message("Reply removed")
}
