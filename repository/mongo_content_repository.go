package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names, one per content kind
const (
	MoviesCollection = "movies"
	ShowsCollection  = "tv_shows"
)

// MongoContentRepository is the MongoDB-backed mirror store. Each content kind
// lives in its own collection with a unique index on tmdb_id.
type MongoContentRepository struct {
	db *mongo.Database
}

var _ ContentStore = (*MongoContentRepository)(nil)

// ConnectMongo opens a client and verifies connectivity
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoContentRepository creates the repository and ensures its indexes
func NewMongoContentRepository(ctx context.Context, db *mongo.Database) (*MongoContentRepository, error) {
	r := &MongoContentRepository{db: db}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoContentRepository) ensureIndexes(ctx context.Context) error {
	for _, name := range []string{MoviesCollection, ShowsCollection} {
		_, err := r.db.Collection(name).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tmdb_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "popularity", Value: -1}}},
		})
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (r *MongoContentRepository) collection(kind models.ContentKind) *mongo.Collection {
	if kind == models.KindTV {
		return r.db.Collection(ShowsCollection)
	}
	return r.db.Collection(MoviesCollection)
}

// FindByTMDBID looks up a record by its natural key
func (r *MongoContentRepository) FindByTMDBID(ctx context.Context, kind models.ContentKind, tmdbID int) (*models.Content, error) {
	var content models.Content
	err := r.collection(kind).FindOne(ctx, bson.M{"tmdb_id": tmdbID}).Decode(&content)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %s %d: %w", kind, tmdbID, err)
	}
	return &content, nil
}

// GetByID searches both collections for the internal ID
func (r *MongoContentRepository) GetByID(ctx context.Context, id string) (*models.Content, error) {
	for _, kind := range []models.ContentKind{models.KindMovie, models.KindTV} {
		var content models.Content
		err := r.collection(kind).FindOne(ctx, bson.M{"id": id}).Decode(&content)
		if err == nil {
			return &content, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to get content: %w", err)
		}
	}
	return nil, fmt.Errorf("content with id %s: %w", id, ErrNotFound)
}

// List returns records of one kind ordered by popularity
func (r *MongoContentRepository) List(ctx context.Context, kind models.ContentKind, limit, offset int) ([]models.Content, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "popularity", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection(kind).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind, err)
	}

	contents := []models.Content{}
	if err := cursor.All(ctx, &contents); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return contents, nil
}

// Insert stores a new record; a tmdb_id conflict yields ErrDuplicate
func (r *MongoContentRepository) Insert(ctx context.Context, content *models.Content) error {
	if content.ID == "" {
		content.ID = uuid.NewString()
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection(content.Kind).InsertOne(ctx, content); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s %d: %w", content.Kind, content.TMDBID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert content: %w", err)
	}
	return nil
}
