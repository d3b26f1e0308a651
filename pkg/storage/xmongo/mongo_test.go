package xmongo

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mopts "go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

// =============================================================================
// 测试替身
// =============================================================================

type fakeClient struct {
	pingErr       error
	pings         int
	sawDeadline   bool
	disconnectErr error
	disconnects   int
	sessions      int
}

func (f *fakeClient) Ping(ctx context.Context, _ *readpref.ReadPref) error {
	f.pings++
	_, f.sawDeadline = ctx.Deadline()
	return f.pingErr
}

func (f *fakeClient) Disconnect(context.Context) error {
	f.disconnects++
	return f.disconnectErr
}

func (f *fakeClient) NumberSessionsInProgress() int { return f.sessions }

type fakeCollection struct {
	docs     []any
	count    int64
	countErr error
	findErr  error
	delay    time.Duration
}

func (c *fakeCollection) CountDocuments(context.Context, any, ...mopts.Lister[mopts.CountOptions]) (int64, error) {
	time.Sleep(c.delay)
	return c.count, c.countErr
}

func (c *fakeCollection) Find(context.Context, any, ...mopts.Lister[mopts.FindOptions]) (*mongo.Cursor, error) {
	if c.findErr != nil {
		return nil, c.findErr
	}
	return mongo.NewCursorFromDocuments(c.docs, nil, nil)
}

func (c *fakeCollection) Name() string { return "articles" }

func newTestDB(t *testing.T, client *fakeClient, opts ...Option) *DB {
	t.Helper()
	db, err := newDB(nil, client, "site_a", opts...)
	require.NoError(t, err)
	return db
}

// =============================================================================
// 生命周期
// =============================================================================

func TestDB_Connect(t *testing.T) {
	client := &fakeClient{sessions: 2}
	db := newTestDB(t, client)

	require.NoError(t, db.Connect(context.Background()))
	assert.True(t, client.sawDeadline, "无 deadline 时应用默认超时")

	client.pingErr = errors.New("no reachable servers")
	assert.ErrorIs(t, db.Connect(context.Background()), client.pingErr)

	s := db.Stats()
	assert.Equal(t, int64(2), s.PingCount)
	assert.Equal(t, int64(1), s.PingErrors)
	assert.Equal(t, 2, s.SessionsInFlight)
	assert.Equal(t, "site_a", db.Name())
}

func TestDB_Close(t *testing.T) {
	client := &fakeClient{}
	db := newTestDB(t, client)
	ctx := context.Background()

	require.NoError(t, db.Close(ctx))
	assert.ErrorIs(t, db.Close(ctx), ErrClosed)
	assert.Equal(t, 1, client.disconnects)

	assert.ErrorIs(t, db.Connect(ctx), ErrClosed)
	_, err := db.FindPage(ctx, "articles", nil, PageOptions{Page: 1, PageSize: 1})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, db.Stats().SessionsInFlight)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "db")
	assert.ErrorIs(t, err, ErrNilClient)

	_, err = newDB(nil, &fakeClient{}, "")
	assert.ErrorIs(t, err, ErrEmptyDatabase)
}

// =============================================================================
// 分页
// =============================================================================

func TestDB_FindPage(t *testing.T) {
	db := newTestDB(t, &fakeClient{})
	coll := &fakeCollection{
		count: 5,
		docs: []any{
			bson.D{{Key: "title", Value: "one"}},
			bson.D{{Key: "title", Value: "two"}},
		},
	}

	page, err := db.findPage(context.Background(), coll, nil, PageOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, int64(2), page.Page)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "one", page.Data[0]["title"])
}

func TestDB_FindPageEmpty(t *testing.T) {
	db := newTestDB(t, &fakeClient{})
	page, err := db.findPage(context.Background(), &fakeCollection{}, bson.D{}, PageOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Zero(t, page.TotalPages)
}

func TestDB_FindPageErrors(t *testing.T) {
	db := newTestDB(t, &fakeClient{})
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name string
		coll collectionOperations
		opts PageOptions
		want error
	}{
		{"页码为 0", &fakeCollection{}, PageOptions{Page: 0, PageSize: 1}, ErrInvalidPage},
		{"每页为 0", &fakeCollection{}, PageOptions{Page: 1, PageSize: 0}, ErrInvalidPageSize},
		{"溢出", &fakeCollection{}, PageOptions{Page: math.MaxInt64, PageSize: 2}, ErrPageOverflow},
		{"计数失败", &fakeCollection{countErr: boom}, PageOptions{Page: 1, PageSize: 1}, boom},
		{"查询失败", &fakeCollection{findErr: boom}, PageOptions{Page: 1, PageSize: 1}, boom},
		{"集合为 nil", nil, PageOptions{Page: 1, PageSize: 1}, ErrNilCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.findPage(ctx, tt.coll, nil, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDB_SlowQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	db := newTestDB(t, &fakeClient{}, WithSlowQueryThreshold(time.Millisecond), WithLogger(logger))

	_, err := db.findPage(context.Background(), &fakeCollection{delay: 5 * time.Millisecond}, nil, PageOptions{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), db.Stats().SlowQueries)
	assert.Contains(t, buf.String(), "slow mongo query")
	assert.Contains(t, buf.String(), "collection=articles")
}

func TestPageOffset(t *testing.T) {
	skip, err := pageOffset(3, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(50), skip)
	assert.Equal(t, int64(4), totalPages(76, 25))
	assert.Equal(t, int64(1), totalPages(1, 25))
}

// =============================================================================
// 工厂
// =============================================================================

func TestFactory_MissingSettings(t *testing.T) {
	ctx := context.Background()
	_, err := Factory()(ctx, xtenant.NewConfig(nil))
	assert.ErrorIs(t, err, ErrMissingSetting)

	_, err = Factory()(ctx, xtenant.NewConfig(map[string]any{SettingURI: "mongodb://localhost:27017"}))
	assert.ErrorIs(t, err, ErrMissingSetting)

	_, err = Factory()(ctx, xtenant.NewConfig(map[string]any{SettingURI: "not-a-uri", SettingDatabase: "x"}))
	assert.Error(t, err)
}

func TestFactory_CreatesDB(t *testing.T) {
	inst, err := Factory(WithHealthTimeout(50*time.Millisecond))(context.Background(), xtenant.NewConfig(map[string]any{
		SettingURI:      "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50",
		SettingDatabase: "site_b",
	}))
	require.NoError(t, err)

	db, ok := inst.(*DB)
	require.True(t, ok)
	assert.Equal(t, "site_b", db.Name())
	assert.Equal(t, "site_b", db.Database().Name())
	assert.Error(t, db.Connect(context.Background()), "无可用服务器")
	require.NoError(t, db.Close(context.Background()))
}
