package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/events"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

type RatingInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"nullable,max=500"`
}

type CommentInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// ReviewService manages ratings and comments. Rating writes recompute the
// product's summary in the same transaction.
type ReviewService struct {
	db       *gorm.DB
	reviews  *repositories.ReviewRepository
	products *repositories.ProductRepository
	orders   *repositories.OrderRepository
	events   events.Dispatcher
}

func NewReviewService(db *gorm.DB, d events.Dispatcher) *ReviewService {
	return &ReviewService{
		db:       db,
		reviews:  repositories.NewReviewRepository(db),
		products: repositories.NewProductRepository(db),
		orders:   repositories.NewOrderRepository(db),
		events:   d,
	}
}

// ── ratings ──────────────────────────────────────────────────────────────────

func (s *ReviewService) Ratings(ctx context.Context, productID uint, p orm.Pagination) ([]models.ProductRating, orm.Pagination, error) {
	if err := s.requireProduct(ctx, s.products, productID); err != nil {
		return nil, p, err
	}
	return s.reviews.ListRatings(ctx, productID, p)
}

// Rate records the caller's rating. Only buyers with a delivered order for
// the product may rate it, once.
func (s *ReviewService) Rate(ctx context.Context, actor auth.Identity, productID uint, in RatingInput) (*models.ProductRating, error) {
	rating := &models.ProductRating{
		UserID:           actor.UserID,
		ProductID:        productID,
		Rating:           in.Rating,
		Review:           strings.TrimSpace(in.Review),
		VerifiedPurchase: true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews, products := s.reviews.WithTx(tx), s.products.WithTx(tx)

		if err := s.requireProduct(ctx, products, productID); err != nil {
			return err
		}
		rated, err := reviews.HasRated(ctx, actor.UserID, productID)
		if err != nil {
			return err
		}
		if rated {
			return Validation("You have already rated this product")
		}
		bought, err := s.orders.WithTx(tx).HasDeliveredOrderWith(ctx, actor.UserID, productID)
		if err != nil {
			return err
		}
		if !bought {
			return Validation("You can only rate products from delivered orders")
		}

		if err := reviews.CreateRating(ctx, rating); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Validation("You have already rated this product")
			}
			return err
		}
		return s.recompute(ctx, reviews, products, productID)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, productID)
	return rating, nil
}

// UpdateRating lets the author change their rating.
func (s *ReviewService) UpdateRating(ctx context.Context, actor auth.Identity, id uint, in RatingInput) (*models.ProductRating, error) {
	var rating *models.ProductRating
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := s.reviews.WithTx(tx)

		var err error
		if rating, err = s.findRating(ctx, reviews, id); err != nil {
			return err
		}
		if rating.UserID != actor.UserID {
			return Forbidden("You can only update your own rating")
		}
		rating.Rating = in.Rating
		rating.Review = strings.TrimSpace(in.Review)
		if err := reviews.SaveRating(ctx, rating); err != nil {
			return err
		}
		return s.recompute(ctx, reviews, s.products.WithTx(tx), rating.ProductID)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, rating.ProductID)
	return rating, nil
}

// DeleteRating is allowed for the author and for admins.
func (s *ReviewService) DeleteRating(ctx context.Context, actor auth.Identity, id uint) error {
	var productID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := s.reviews.WithTx(tx)

		rating, err := s.findRating(ctx, reviews, id)
		if err != nil {
			return err
		}
		if rating.UserID != actor.UserID && !actor.IsAdmin {
			return Forbidden("You can only delete your own rating")
		}
		productID = rating.ProductID
		if err := reviews.DeleteRating(ctx, id); err != nil {
			return err
		}
		return s.recompute(ctx, reviews, s.products.WithTx(tx), productID)
	})
	if err != nil {
		return err
	}
	s.changed(ctx, productID)
	return nil
}

// recompute rewrites the product's average, count and distribution from
// the ratings table.
func (s *ReviewService) recompute(ctx context.Context, reviews *repositories.ReviewRepository, products *repositories.ProductRepository, productID uint) error {
	counts, err := reviews.RatingCounts(ctx, productID)
	if err != nil {
		return err
	}
	avg, count, dist := Summary(counts)
	return products.UpdateRatingSummary(ctx, productID, avg, count, dist)
}

// Summary turns per-star counts into the average (one decimal place), the
// total and the distribution.
func Summary(counts map[int]int) (float64, int, models.RatingDistribution) {
	var (
		dist  models.RatingDistribution
		total int
		sum   int
	)
	for stars, n := range counts {
		if stars < 1 || stars > 5 {
			continue
		}
		dist.Add(stars, n)
		total += n
		sum += stars * n
	}
	if total == 0 {
		return 0, 0, dist
	}
	return math.Round(float64(sum)/float64(total)*10) / 10, total, dist
}

func (s *ReviewService) findRating(ctx context.Context, reviews *repositories.ReviewRepository, id uint) (*models.ProductRating, error) {
	r, err := reviews.FindRating(ctx, id)
	if repositories.IsNotFound(err) {
		return nil, NotFound("Rating not found")
	}
	return r, err
}

// ── comments ─────────────────────────────────────────────────────────────────

func (s *ReviewService) Comments(ctx context.Context, productID uint, p orm.Pagination) ([]models.ProductComment, orm.Pagination, error) {
	if err := s.requireProduct(ctx, s.products, productID); err != nil {
		return nil, p, err
	}
	return s.reviews.ListComments(ctx, productID, p)
}

// Comment posts a comment. It is marked verified when the author has a
// delivered order for the product.
func (s *ReviewService) Comment(ctx context.Context, actor auth.Identity, productID uint, in CommentInput) (*models.ProductComment, error) {
	if err := s.requireProduct(ctx, s.products, productID); err != nil {
		return nil, err
	}
	verified, err := s.orders.HasDeliveredOrderWith(ctx, actor.UserID, productID)
	if err != nil {
		return nil, err
	}

	c := &models.ProductComment{
		UserID:           actor.UserID,
		ProductID:        productID,
		Content:          strings.TrimSpace(in.Content),
		VerifiedPurchase: verified,
	}
	if err := s.reviews.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return s.reviews.FindComment(ctx, c.ID)
}

func (s *ReviewService) UpdateComment(ctx context.Context, actor auth.Identity, id uint, in CommentInput) (*models.ProductComment, error) {
	c, err := s.findComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != actor.UserID {
		return nil, Forbidden("You can only edit your own comment")
	}
	if err := s.reviews.UpdateCommentContent(ctx, id, strings.TrimSpace(in.Content)); err != nil {
		return nil, err
	}
	return s.reviews.FindComment(ctx, id)
}

// DeleteComment removes the comment together with its replies.
func (s *ReviewService) DeleteComment(ctx context.Context, actor auth.Identity, id uint) error {
	c, err := s.findComment(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != actor.UserID && !actor.IsAdmin {
		return Forbidden("You can only delete your own comment")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.reviews.WithTx(tx).DeleteComment(ctx, id)
	})
}

func (s *ReviewService) Reply(ctx context.Context, actor auth.Identity, commentID uint, in CommentInput) (*models.ProductComment, error) {
	if _, err := s.findComment(ctx, commentID); err != nil {
		return nil, err
	}
	rep := &models.CommentReply{CommentID: commentID, UserID: actor.UserID, Content: strings.TrimSpace(in.Content)}
	if err := s.reviews.CreateReply(ctx, rep); err != nil {
		return nil, err
	}
	return s.reviews.FindComment(ctx, commentID)
}

// DeleteReply is allowed for the reply's author and for admins.
func (s *ReviewService) DeleteReply(ctx context.Context, actor auth.Identity, commentID, replyID uint) error {
	rep, err := s.reviews.FindReply(ctx, commentID, replyID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NotFound("Reply not found")
		}
		return err
	}
	if rep.UserID != actor.UserID && !actor.IsAdmin {
		return Forbidden("You can only delete your own reply")
	}
	return s.reviews.DeleteReply(ctx, replyID)
}

func (s *ReviewService) findComment(ctx context.Context, id uint) (*models.ProductComment, error) {
	c, err := s.reviews.FindComment(ctx, id)
	if repositories.IsNotFound(err) {
		return nil, NotFound("Comment not found")
	}
	return c, err
}

func (s *ReviewService) requireProduct(ctx context.Context, products *repositories.ProductRepository, id uint) error {
	ok, err := products.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NotFound("Product not found")
	}
	return nil
}

func (s *ReviewService) changed(ctx context.Context, productID uint) {
	fire(ctx, s.events, events.ProductChanged, events.ProductChangedEvent{ProductID: productID})
}
