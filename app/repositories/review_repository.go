package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository { return &ReviewRepository{db: tx} }

// ── ratings ──────────────────────────────────────────────────────────────────

func (r *ReviewRepository) FindRating(ctx context.Context, id uint) (*models.ProductRating, error) {
	var pr models.ProductRating
	if err := r.db.WithContext(ctx).First(&pr, id).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *ReviewRepository) HasRated(ctx context.Context, userID, productID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ProductRating{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&n).Error
	return n > 0, err
}

func (r *ReviewRepository) CreateRating(ctx context.Context, pr *models.ProductRating) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

func (r *ReviewRepository) SaveRating(ctx context.Context, pr *models.ProductRating) error {
	return r.db.WithContext(ctx).Model(pr).Select("rating", "review").Updates(pr).Error
}

func (r *ReviewRepository) DeleteRating(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.ProductRating{}, id).Error
}

func (r *ReviewRepository) ListRatings(ctx context.Context, productID uint, p orm.Pagination) ([]models.ProductRating, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.ProductRating{}).
		Preload("User", withAuthor).
		Where("product_id = ?", productID)

	out := []models.ProductRating{}
	p, err := orm.Paginate(q, p, "created_at desc, id desc", &out)
	return out, p, err
}

// RatingCounts returns how many ratings of each star value the product has.
func (r *ReviewRepository) RatingCounts(ctx context.Context, productID uint) (map[int]int, error) {
	var rows []struct {
		Rating int
		N      int
	}
	err := r.db.WithContext(ctx).Model(&models.ProductRating{}).
		Select("rating, COUNT(*) AS n").
		Where("product_id = ?", productID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(rows))
	for _, row := range rows {
		out[row.Rating] = row.N
	}
	return out, nil
}

// ── comments ─────────────────────────────────────────────────────────────────

func (r *ReviewRepository) FindComment(ctx context.Context, id uint) (*models.ProductComment, error) {
	var c models.ProductComment
	err := r.db.WithContext(ctx).
		Preload("User", withAuthor).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Replies.User", withAuthor).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ReviewRepository) ListComments(ctx context.Context, productID uint, p orm.Pagination) ([]models.ProductComment, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.ProductComment{}).
		Preload("User", withAuthor).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Replies.User", withAuthor).
		Where("product_id = ?", productID)

	out := []models.ProductComment{}
	p, err := orm.Paginate(q, p, "created_at desc, id desc", &out)
	return out, p, err
}

func (r *ReviewRepository) CreateComment(ctx context.Context, c *models.ProductComment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ReviewRepository) UpdateCommentContent(ctx context.Context, id uint, content string) error {
	return r.db.WithContext(ctx).Model(&models.ProductComment{}).Where("id = ?", id).Update("content", content).Error
}

// DeleteComment removes the comment and its replies. Run it inside a
// transaction.
func (r *ReviewRepository) DeleteComment(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Unscoped().Where("comment_id = ?", id).Delete(&models.CommentReply{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Unscoped().Delete(&models.ProductComment{}, id).Error
}

func (r *ReviewRepository) FindReply(ctx context.Context, commentID, replyID uint) (*models.CommentReply, error) {
	var rep models.CommentReply
	err := r.db.WithContext(ctx).Where("comment_id = ?", commentID).First(&rep, replyID).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReviewRepository) CreateReply(ctx context.Context, rep *models.CommentReply) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *ReviewRepository) DeleteReply(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.CommentReply{}, id).Error
}
