package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a Store on a MongoDB database. Each collection path maps to a
// mongo collection, "investors/42/performance" becomes
// "investors.42.performance".
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// mongoDocument is the stored shape of a Document.
type mongoDocument struct {
	ID        string    `bson:"_id"`
	Body      bson.Raw  `bson:"body"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ConnectMongo connects to uri and uses the database named database.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) coll(collection string) *mongo.Collection {
	return m.db.Collection(strings.ReplaceAll(collection, "/", "."))
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validate(collection, id); err != nil {
		return Document{}, err
	}
	var md mongoDocument
	err := m.coll(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&md)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("mongo: get %s/%s: %w", collection, id, err)
	}
	return fromMongo(collection, md)
}

func (m *Mongo) Put(ctx context.Context, doc Document) error {
	if err := validate(doc.Collection, doc.ID); err != nil {
		return err
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	var body bson.D
	if err := bson.UnmarshalExtJSON(doc.Body, false, &body); err != nil {
		return fmt.Errorf("mongo: encode %s/%s: %w", doc.Collection, doc.ID, err)
	}
	replacement := bson.D{
		{Key: "_id", Value: doc.ID},
		{Key: "body", Value: body},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}
	_, err := m.coll(doc.Collection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: doc.ID}}, replacement, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: put %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	if _, err := m.coll(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("mongo: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) List(ctx context.Context, collection string) ([]Document, error) {
	cur, err := m.coll(collection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var res []Document
	for cur.Next(ctx) {
		var md mongoDocument
		if err := cur.Decode(&md); err != nil {
			return nil, fmt.Errorf("mongo: decode %s: %w", collection, err)
		}
		doc, err := fromMongo(collection, md)
		if err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	return res, cur.Err()
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func fromMongo(collection string, md mongoDocument) (Document, error) {
	body, err := bson.MarshalExtJSON(md.Body, false, false)
	if err != nil {
		return Document{}, fmt.Errorf("mongo: decode %s/%s: %w", collection, md.ID, err)
	}
	return Document{Collection: collection, ID: md.ID, Body: body, UpdatedAt: md.UpdatedAt.UTC()}, nil
}
