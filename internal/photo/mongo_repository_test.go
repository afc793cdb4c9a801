package photo

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// memCollection keeps photo documents in memory and honours the sort the
// caller asks for, so ordering comes from the repository's query.
type memCollection struct {
	mu      sync.Mutex
	docs    []photoDocument
	failErr error
}

func (c *memCollection) InsertOne(_ context.Context, document any, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	if c.failErr != nil {
		return nil, c.failErr
	}
	doc := document.(photoDocument)
	doc.ID = bson.NewObjectID()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc.ID}, nil
}

func (c *memCollection) Find(_ context.Context, _ any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error) {
	if c.failErr != nil {
		return nil, c.failErr
	}
	var fo options.FindOptions
	for _, o := range opts {
		for _, set := range o.List() {
			if err := set(&fo); err != nil {
				return nil, err
			}
		}
	}

	c.mu.Lock()
	docs := append([]photoDocument(nil), c.docs...)
	c.mu.Unlock()

	if keys, ok := fo.Sort.(bson.D); ok {
		sort.SliceStable(docs, func(i, j int) bool {
			for _, k := range keys {
				cmp := compareField(docs[i], docs[j], k.Key)
				if cmp == 0 {
					continue
				}
				if k.Value == -1 {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}
	return mongo.NewCursorFromDocuments(out, nil, nil)
}

func (c *memCollection) FindOne(_ context.Context, filter any, _ ...options.Lister[options.FindOneOptions]) *mongo.SingleResult {
	if c.failErr != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, c.failErr, nil)
	}
	id := filterID(filter)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if d.ID == id {
			return mongo.NewSingleResultFromDocument(d, nil, nil)
		}
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (c *memCollection) DeleteOne(_ context.Context, filter any, _ ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error) {
	if c.failErr != nil {
		return nil, c.failErr
	}
	id := filterID(filter)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if d.ID == id {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return &mongo.DeleteResult{DeletedCount: 1}, nil
		}
	}
	return &mongo.DeleteResult{DeletedCount: 0}, nil
}

func filterID(filter any) bson.ObjectID {
	for _, e := range filter.(bson.D) {
		if e.Key == "_id" {
			return e.Value.(bson.ObjectID)
		}
	}
	return bson.NilObjectID
}

func compareField(a, b photoDocument, key string) int {
	switch key {
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "_id":
		return bytes.Compare(a.ID[:], b.ID[:])
	}
	return 0
}

func newTestMongoRepository(start time.Time) (*MongoRepository, *memCollection) {
	coll := &memCollection{}
	now := start
	repo := &MongoRepository{coll: coll, now: func() time.Time {
		now = now.Add(time.Second)
		return now
	}}
	return repo, coll
}

func TestMongoRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestMongoRepository(time.Date(2024, 5, 1, 0, 0, 0, 123456789, time.UTC))

	p := &Photo{OriginalURL: "o", ThumbnailURL: "t", OriginalKey: "ko", ThumbnailKey: "kt", Width: 30, Height: 20}
	require.NoError(t, repo.Create(ctx, p))
	require.Len(t, p.ID, 24)
	require.Zero(t, p.CreatedAt.Nanosecond()%int(time.Millisecond))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, "kt", got.ThumbnailKey)
	require.Equal(t, 30, got.Width)
	require.True(t, p.CreatedAt.Equal(got.CreatedAt))
}

func TestMongoRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestMongoRepository(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	var ids []string
	for i := 0; i < 3; i++ {
		p := &Photo{OriginalURL: "o", ThumbnailURL: "t", Width: i + 1, Height: 1}
		require.NoError(t, repo.Create(ctx, p))
		ids = append(ids, p.ID)
	}

	photos, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 3)
	require.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{photos[0].ID, photos[1].ID, photos[2].ID})
}

func TestMongoRepository_ListEmpty(t *testing.T) {
	repo, _ := newTestMongoRepository(time.Now())

	photos, err := repo.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, photos)
	require.Empty(t, photos)
}

func TestMongoRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestMongoRepository(time.Now())

	tests := []struct {
		name string
		id   string
	}{
		{"malformed id", "not-an-object-id"},
		{"uuid", "6d1f3c0e-6a2b-4a7e-9a52-2f0b1c5d7e11"},
		{"unknown id", bson.NewObjectID().Hex()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.GetByID(ctx, tt.id)
			require.ErrorIs(t, err, ErrNotFound)
			require.ErrorIs(t, repo.Delete(ctx, tt.id), ErrNotFound)
		})
	}
}

func TestMongoRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo, coll := newTestMongoRepository(time.Now())

	p := &Photo{OriginalURL: "o", ThumbnailURL: "t", Width: 1, Height: 1}
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.Delete(ctx, p.ID))
	require.Empty(t, coll.docs)
	require.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)
}

func TestMongoRepository_StoreErrors(t *testing.T) {
	ctx := context.Background()
	repo, coll := newTestMongoRepository(time.Now())
	coll.failErr = errors.New("server selection timeout")
	id := bson.NewObjectID().Hex()

	require.Error(t, repo.Create(ctx, &Photo{}))
	_, err := repo.List(ctx)
	require.Error(t, err)

	_, err = repo.GetByID(ctx, id)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	err = repo.Delete(ctx, id)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
