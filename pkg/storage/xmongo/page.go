package xmongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xsite/pkg/observability/xmetrics"
)

// PageOptions 分页查询参数。
type PageOptions struct {
	// Page 页码，从 1 开始。
	Page int64
	// PageSize 每页大小。
	PageSize int64
	// Sort 排序条件。不指定时 MongoDB 不保证顺序，翻页可能重复或遗漏。
	Sort bson.D
	// Projection 返回字段。
	Projection bson.D
}

// PageResult 分页查询结果。
//
// Total 来自独立的 COUNT，与数据查询不在同一事务中，并发写入时可能与 Data 略有出入。
type PageResult struct {
	Data       []bson.M `json:"data"`
	Total      int64    `json:"total"`
	Page       int64    `json:"page"`
	PageSize   int64    `json:"pageSize"`
	TotalPages int64    `json:"totalPages"`
}

// collectionOperations *mongo.Collection 的子集，便于测试替换。
type collectionOperations interface {
	CountDocuments(ctx context.Context, filter any, opts ...mopts.Lister[mopts.CountOptions]) (int64, error)
	Find(ctx context.Context, filter any, opts ...mopts.Lister[mopts.FindOptions]) (*mongo.Cursor, error)
	Name() string
}

// FindPage 在绑定数据库的 coll 集合上分页查询。filter 为 nil 时匹配全部文档。
func (d *DB) FindPage(ctx context.Context, coll string, filter any, opts PageOptions) (*PageResult, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	return d.findPage(ctx, d.Collection(coll), filter, opts)
}

func (d *DB) findPage(ctx context.Context, coll collectionOperations, filter any, opts PageOptions) (result *PageResult, err error) {
	if coll == nil {
		return nil, ErrNilCollection
	}
	skip, err := pageOffset(opts.Page, opts.PageSize)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = bson.D{}
	}

	start := time.Now()
	ctx, span := xmetrics.Start(ctx, d.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "find_page",
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String("db.system", "mongodb"),
			xmetrics.String("db.name", d.database),
			xmetrics.String("db.collection", coll.Name()),
		},
	})
	defer func() {
		slow := d.observeSlow(ctx, "find_page", coll.Name(), time.Since(start))
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Bool("slow", slow)}})
	}()

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("xmongo: count %s.%s: %w", d.database, coll.Name(), err)
	}

	find := mopts.Find().SetSkip(skip).SetLimit(opts.PageSize)
	if len(opts.Sort) > 0 {
		find = find.SetSort(opts.Sort)
	}
	if len(opts.Projection) > 0 {
		find = find.SetProjection(opts.Projection)
	}

	cursor, err := coll.Find(ctx, filter, find)
	if err != nil {
		return nil, fmt.Errorf("xmongo: find %s.%s: %w", d.database, coll.Name(), err)
	}
	defer func() {
		if cerr := cursor.Close(ctx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("xmongo: close cursor: %w", cerr))
		}
	}()

	data := []bson.M{}
	if err = cursor.All(ctx, &data); err != nil {
		return nil, fmt.Errorf("xmongo: decode %s.%s: %w", d.database, coll.Name(), err)
	}

	return &PageResult{
		Data:       data,
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages(total, opts.PageSize),
	}, nil
}

// pageOffset 校验分页参数并返回 skip。
func pageOffset(page, size int64) (int64, error) {
	if page < 1 {
		return 0, ErrInvalidPage
	}
	if size < 1 {
		return 0, ErrInvalidPageSize
	}
	if page-1 > math.MaxInt64/size {
		return 0, ErrPageOverflow
	}
	return (page - 1) * size, nil
}

func totalPages(total, size int64) int64 {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
