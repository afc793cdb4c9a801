package photo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const photosCollection = "photos"

// photoDocument is the MongoDB shape of a Photo.
type photoDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	OriginalURL  string        `bson:"originalUrl"`
	ThumbnailURL string        `bson:"thumbnailUrl"`
	OriginalKey  string        `bson:"originalKey,omitempty"`
	ThumbnailKey string        `bson:"thumbnailKey,omitempty"`
	Width        int           `bson:"width"`
	Height       int           `bson:"height"`
	CreatedAt    time.Time     `bson:"createdAt"`
}

func (d *photoDocument) photo() Photo {
	return Photo{
		ID:           d.ID.Hex(),
		OriginalURL:  d.OriginalURL,
		ThumbnailURL: d.ThumbnailURL,
		OriginalKey:  d.OriginalKey,
		ThumbnailKey: d.ThumbnailKey,
		Width:        d.Width,
		Height:       d.Height,
		CreatedAt:    d.CreatedAt,
	}
}

// collection is the part of *mongo.Collection the repository uses.
type collection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
}

// MongoRepository stores photo records as documents in MongoDB.
type MongoRepository struct {
	coll collection
	now  func() time.Time
}

// NewMongoRepository returns a repository over the photos collection of db
// and makes sure the createdAt index exists.
func NewMongoRepository(ctx context.Context, db *mongo.Database) (*MongoRepository, error) {
	coll := db.Collection(photosCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	})
	if err != nil {
		return nil, fmt.Errorf("create createdAt index: %w", err)
	}
	return &MongoRepository{coll: coll, now: time.Now}, nil
}

// Create inserts p as a new document.
func (r *MongoRepository) Create(ctx context.Context, p *Photo) error {
	doc := photoDocument{
		OriginalURL:  p.OriginalURL,
		ThumbnailURL: p.ThumbnailURL,
		OriginalKey:  p.OriginalKey,
		ThumbnailKey: p.ThumbnailKey,
		Width:        p.Width,
		Height:       p.Height,
		// BSON dates carry millisecond precision.
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return fmt.Errorf("insert photo: unexpected id type %T", res.InsertedID)
	}
	p.ID = id.Hex()
	p.CreatedAt = doc.CreatedAt
	return nil
}

// List returns all photos ordered by creation time, newest first.
func (r *MongoRepository) List(ctx context.Context) ([]Photo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	var docs []photoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode photos: %w", err)
	}
	photos := make([]Photo, 0, len(docs))
	for i := range docs {
		photos = append(photos, docs[i].photo())
	}
	return photos, nil
}

// GetByID fetches a photo by its ObjectID hex string.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*Photo, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc photoDocument
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo by id: %w", err)
	}
	p := doc.photo()
	return &p, nil
}

// Delete removes the photo document.
func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
