package roster

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultCastCollection  = "casts"
	defaultMovieCollection = "movies"
	mongoLoadTimeout       = 10 * time.Second
)

// FileSource reads a YAML roster from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return "file:" + s.Path
}

func (s FileSource) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot, err := parseYAML(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse roster %s: %w", s.Path, err)
	}
	return snapshot, nil
}

// MongoSource reads actor names from the cast collection and titles from the
// movie collection. A movie document stores its titles as a string array.
type MongoSource struct {
	db              *mongo.Database
	castCollection  string
	movieCollection string
}

type castDoc struct {
	Name string `bson:"name"`
}

type movieDoc struct {
	Title []string `bson:"title"`
}

func NewMongoSource(client *mongo.Client, dbName string) *MongoSource {
	return &MongoSource{
		db:              client.Database(dbName),
		castCollection:  defaultCastCollection,
		movieCollection: defaultMovieCollection,
	}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *MongoSource) Name() string {
	return "mongo:" + s.db.Name()
}

func (s *MongoSource) Load(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoLoadTimeout)
	defer cancel()

	var casts []castDoc
	cursor, err := s.db.Collection(s.castCollection).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 0, "name": 1}))
	if err != nil {
		return Snapshot{}, fmt.Errorf("find casts: %w", err)
	}
	if err := cursor.All(ctx, &casts); err != nil {
		return Snapshot{}, fmt.Errorf("decode casts: %w", err)
	}

	var movies []movieDoc
	cursor, err = s.db.Collection(s.movieCollection).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 0, "title": 1}))
	if err != nil {
		return Snapshot{}, fmt.Errorf("find movies: %w", err)
	}
	if err := cursor.All(ctx, &movies); err != nil {
		return Snapshot{}, fmt.Errorf("decode movies: %w", err)
	}

	snapshot := Snapshot{
		Actors: make([]string, 0, len(casts)),
		Titles: make([]string, 0, len(movies)),
	}
	for _, doc := range casts {
		if name := strings.TrimSpace(doc.Name); name != "" {
			snapshot.Actors = append(snapshot.Actors, name)
		}
	}
	for _, doc := range movies {
		for _, title := range doc.Title {
			if title = strings.TrimSpace(title); title != "" {
				snapshot.Titles = append(snapshot.Titles, title)
			}
		}
	}
	return snapshot, nil
}
