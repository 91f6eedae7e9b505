package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testutil"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

// deliveredBuyer places and delivers an order for p, returning the buyer.
func deliveredBuyer(t *testing.T, db *gorm.DB, email string, p *models.Product) *models.User {
	t.Helper()
	buyer := seedUser(t, db, email, false)
	admin := seedUser(t, db, "admin+"+email, true)
	orders := services.NewOrderService(db, nil)
	o, err := orders.Create(context.Background(), identity(buyer), orderInput(line(p, 1)))
	require.NoError(t, err)
	_, err = orders.UpdateStatus(context.Background(), identity(admin), o.ID, "Delivered")
	require.NoError(t, err)
	return buyer
}

func productSummary(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p
}

func TestRate_RequiresDeliveredOrder(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewReviewService(db, nil)
	p := seedProduct(t, db, "Chair", "40", 10, 2)
	stranger := seedUser(t, db, "stranger@example.com", false)

	_, err := svc.Rate(context.Background(), identity(stranger), p.ID, services.RatingInput{Rating: 5})
	requireKind(t, err, services.KindValidation, "You can only rate products from delivered orders")

	_, err = svc.Rate(context.Background(), identity(stranger), 999, services.RatingInput{Rating: 5})
	requireKind(t, err, services.KindNotFound, "Product not found")
}

func TestRate_DuplicateKeepsFirstRating(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewReviewService(db, nil)
	p := seedProduct(t, db, "Desk", "90", 10, 2)
	buyer := deliveredBuyer(t, db, "rater@example.com", p)

	first, err := svc.Rate(context.Background(), identity(buyer), p.ID, services.RatingInput{Rating: 4, Review: "solid"})
	require.NoError(t, err)
	assert.True(t, first.VerifiedPurchase)

	_, err = svc.Rate(context.Background(), identity(buyer), p.ID, services.RatingInput{Rating: 1})
	requireKind(t, err, services.KindValidation, "You have already rated this product")

	var stored models.ProductRating
	require.NoError(t, db.First(&stored, first.ID).Error)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, "solid", stored.Review)

	summary := productSummary(t, db, p.ID)
	assert.Equal(t, 1, summary.RatingCount)
	assert.Equal(t, 4.0, summary.AverageRating)
}

func TestRatingSummaryFollowsWrites(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewReviewService(db, nil)
	p := seedProduct(t, db, "Sofa", "300", 10, 2)
	a := deliveredBuyer(t, db, "a@example.com", p)
	b := deliveredBuyer(t, db, "b@example.com", p)
	c := deliveredBuyer(t, db, "c@example.com", p)

	ra, err := svc.Rate(context.Background(), identity(a), p.ID, services.RatingInput{Rating: 5})
	require.NoError(t, err)
	_, err = svc.Rate(context.Background(), identity(b), p.ID, services.RatingInput{Rating: 4})
	require.NoError(t, err)
	rc, err := svc.Rate(context.Background(), identity(c), p.ID, services.RatingInput{Rating: 4})
	require.NoError(t, err)

	s := productSummary(t, db, p.ID)
	assert.Equal(t, 3, s.RatingCount)
	assert.Equal(t, 4.3, s.AverageRating)
	assert.Equal(t, models.RatingDistribution{Four: 2, Five: 1}, s.RatingDistribution)

	_, err = svc.UpdateRating(context.Background(), identity(b), ra.ID, services.RatingInput{Rating: 1})
	requireKind(t, err, services.KindForbidden, "")

	_, err = svc.UpdateRating(context.Background(), identity(c), rc.ID, services.RatingInput{Rating: 1})
	require.NoError(t, err)
	s = productSummary(t, db, p.ID)
	assert.Equal(t, 3.3, s.AverageRating)
	assert.Equal(t, models.RatingDistribution{One: 1, Four: 1, Five: 1}, s.RatingDistribution)

	admin := seedUser(t, db, "mod@example.com", true)
	require.NoError(t, svc.DeleteRating(context.Background(), identity(admin), ra.ID))
	s = productSummary(t, db, p.ID)
	assert.Equal(t, 2, s.RatingCount)
	assert.Equal(t, 2.5, s.AverageRating)

	err = svc.DeleteRating(context.Background(), identity(a), rc.ID)
	requireKind(t, err, services.KindForbidden, "")
}

func TestSummary(t *testing.T) {
	avg, n, dist := services.Summary(map[int]int{})
	assert.Zero(t, avg)
	assert.Zero(t, n)
	assert.Equal(t, models.RatingDistribution{}, dist)

	avg, n, _ = services.Summary(map[int]int{5: 1, 4: 1, 2: 1})
	assert.Equal(t, 3.7, avg)
	assert.Equal(t, 3, n)
}

func TestComments(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewReviewService(db, nil)
	p := seedProduct(t, db, "Rug", "60", 10, 2)
	buyer := deliveredBuyer(t, db, "buyer@example.com", p)
	visitor := seedUser(t, db, "visitor@example.com", false)
	admin := seedUser(t, db, "moderator@example.com", true)
	ctx := context.Background()

	verified, err := svc.Comment(ctx, identity(buyer), p.ID, services.CommentInput{Content: "Lovely rug"})
	require.NoError(t, err)
	assert.True(t, verified.VerifiedPurchase)
	require.NotNil(t, verified.User)
	assert.Empty(t, verified.User.Email)

	plain, err := svc.Comment(ctx, identity(visitor), p.ID, services.CommentInput{Content: "Is it wool?"})
	require.NoError(t, err)
	assert.False(t, plain.VerifiedPurchase)

	_, err = svc.UpdateComment(ctx, identity(visitor), verified.ID, services.CommentInput{Content: "hijack"})
	requireKind(t, err, services.KindForbidden, "")

	edited, err := svc.UpdateComment(ctx, identity(buyer), verified.ID, services.CommentInput{Content: "Lovely rug, thick"})
	require.NoError(t, err)
	assert.Equal(t, "Lovely rug, thick", edited.Content)

	withReply, err := svc.Reply(ctx, identity(visitor), plain.ID, services.CommentInput{Content: "me too"})
	require.NoError(t, err)
	require.Len(t, withReply.Replies, 1)
	replyID := withReply.Replies[0].ID

	_, err = svc.Reply(ctx, identity(buyer), plain.ID, services.CommentInput{Content: "yes, wool"})
	require.NoError(t, err)

	err = svc.DeleteReply(ctx, identity(buyer), plain.ID, replyID)
	requireKind(t, err, services.KindForbidden, "")
	require.NoError(t, svc.DeleteReply(ctx, identity(admin), plain.ID, replyID))
	err = svc.DeleteReply(ctx, identity(admin), plain.ID, replyID)
	requireKind(t, err, services.KindNotFound, "Reply not found")

	list, page, err := svc.Comments(ctx, p.ID, orm.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, list, 2)

	err = svc.DeleteComment(ctx, identity(buyer), plain.ID)
	requireKind(t, err, services.KindForbidden, "")
	require.NoError(t, svc.DeleteComment(ctx, identity(visitor), plain.ID))

	var replies int64
	require.NoError(t, db.Unscoped().Model(&models.CommentReply{}).Where("comment_id = ?", plain.ID).Count(&replies).Error)
	assert.Zero(t, replies)
	var comments int64
	require.NoError(t, db.Unscoped().Model(&models.ProductComment{}).Where("id = ?", plain.ID).Count(&comments).Error)
	assert.Zero(t, comments)

	require.NoError(t, svc.DeleteComment(ctx, identity(admin), verified.ID))
	_, err = svc.Reply(ctx, identity(buyer), verified.ID, services.CommentInput{Content: "gone"})
	requireKind(t, err, services.KindNotFound, "Comment not found")
}
