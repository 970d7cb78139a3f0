package mongo

import (
	"context"
	"errors"
	"fmt"

	"go-signpdf/internal/document"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const collectionName = "documents"

// documentStore uses one collection whose records carry filename and the
// Base64 content. Records are ordered by _id, which grows with insertion.
type documentStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewDocumentStore does not wait for the server; the driver connects in the
// background and errors surface on first use.
func NewDocumentStore(ctx context.Context, uri, database string) (document.Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("invalid mongo uri: %w", err)
	}
	return &documentStore{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
	}, nil
}

var firstInserted = bson.D{{Key: "_id", Value: 1}}

func (s *documentStore) Get(ctx context.Context, filename string) (*document.Document, error) {
	var doc document.Document
	err := s.collection.FindOne(ctx,
		bson.M{"filename": filename},
		options.FindOne().SetSort(firstInserted),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Insert(ctx context.Context, doc *document.Document) error {
	_, err := s.collection.InsertOne(ctx, doc)
	return err
}

func (s *documentStore) Put(ctx context.Context, filename, content string) error {
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"filename": filename},
		bson.M{"$set": bson.M{"content": content}},
		options.FindOneAndUpdate().SetSort(firstInserted),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", document.ErrNotFound, filename)
	}
	return err
}

func (s *documentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *documentStore) Close() error {
	return s.client.Disconnect(context.Background())
}
