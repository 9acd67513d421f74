package repository

import (
	"context"

	"github.com/smallbiznis/investorhub/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the generic table access shared by the record kinds. It has
// no delete: rows are only appended or have columns updated in place.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	UpdateColumns(ctx context.Context, query *T, columns map[string]any) (int64, error)
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}
