package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for a single table model.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID snowflake.ID, resource any) (int64, error)
	Delete(ctx context.Context, resourceID snowflake.ID) (int64, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
