package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserListQuery struct {
	PageRequest
	Email  string
	Status *bool
	Role   domain.Role
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListPaged(ctx context.Context, query UserListQuery) (PageResult[domain.User], error)
	Count(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status bool) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(user).Error
	if isUniqueConstraintError(err) {
		observability.RecordRepositoryOperation(ctx, "user", "create", "conflict")
		return ErrDuplicateEmail
	}
	observability.RecordRepositoryOperation(ctx, "user", "create", outcome(err, nil))
	return err
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	return r.found(ctx, "find_by_id", &u, err)
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	return r.found(ctx, "find_by_email", &u, err)
}

func (r *GormUserRepository) found(ctx context.Context, op string, u *domain.User, err error) (*domain.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", op, outcome(err, ErrUserNotFound))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&n).Error
	observability.RecordRepositoryOperation(ctx, "user", "exists_by_email", outcome(err, nil))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormUserRepository) ListPaged(ctx context.Context, query UserListQuery) (PageResult[domain.User], error) {
	req := normalizePageRequest(query.PageRequest)
	result := PageResult[domain.User]{
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	base := r.db.WithContext(ctx).Model(&domain.User{})
	if query.Email != "" {
		base = base.Where("users.email LIKE ?", query.Email+"%")
	}
	if query.Status != nil {
		base = base.Where("users.status = ?", *query.Status)
	}
	if query.Role != "" {
		base = base.Where("users.role = ?", query.Role)
	}

	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "list_paged", "error")
		return PageResult[domain.User]{}, err
	}

	err := base.Order("users.created_at DESC").Order("users.id").
		Offset(req.Offset()).Limit(req.PageSize).
		Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "list_paged", "error")
		return PageResult[domain.User]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "user", "list_paged", "success")
	return result, nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error
	observability.RecordRepositoryOperation(ctx, "user", "count", outcome(err, nil))
	return n, err
}

// UpdateStatus toggles the active flag. Sessions are left untouched; the
// session lookups join on users.status instead.
func (r *GormUserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status bool) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("status", status)
	err := res.Error
	if err == nil && res.RowsAffected == 0 {
		var n int64
		if cerr := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&n).Error; cerr != nil {
			err = cerr
		} else if n == 0 {
			err = ErrUserNotFound
		}
	}
	observability.RecordRepositoryOperation(ctx, "user", "update_status", outcome(err, ErrUserNotFound))
	return err
}
