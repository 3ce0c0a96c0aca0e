package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Store on a MongoDB database. Documents carry a string
// _id (a caller-chosen key or a generated ObjectID hex) and a createdAt
// field assigned at insert time. Subscribe relies on change streams, so
// the deployment must be a replica set.
type Mongo struct {
	db  *mongo.Database
	log *slog.Logger
}

// NewMongo wraps an open database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		db:  db,
		log: slog.Default().With("component", "docstore"),
	}
}

func (m *Mongo) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := primitive.NewObjectID().Hex()
	if err := m.CreateWithID(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Mongo) CreateWithID(ctx context.Context, collection, id string, fields map[string]any) error {
	doc := bson.M{"_id": id, "createdAt": time.Now().UTC()}
	for k, v := range fields {
		doc[k] = v
	}
	_, err := m.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
		}
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (m *Mongo) Query(ctx context.Context, collection string, preds []Predicate) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := m.db.Collection(collection).Find(ctx, mongoFilter(preds), opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var out []Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, recordFromDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return out, nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	res, err := m.db.Collection(collection).UpdateByID(ctx, id, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

type mongoSub struct {
	cancel context.CancelFunc
}

func (s *mongoSub) Cancel() { s.cancel() }

func (m *Mongo) Subscribe(ctx context.Context, collection string, preds []Predicate, onChange func([]Record)) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	stream, err := m.db.Collection(collection).Watch(subCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}

	deliver := func() bool {
		recs, err := m.Query(subCtx, collection, preds)
		if err != nil {
			if subCtx.Err() == nil {
				m.log.Warn("subscription re-query failed", "collection", collection, "error", err)
			}
			return false
		}
		onChange(recs)
		return true
	}

	go func() {
		defer stream.Close(context.Background())
		// Full current set up front, then again after every change event.
		deliver()
		for stream.Next(subCtx) {
			if !deliver() {
				return
			}
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Warn("change stream closed", "collection", collection, "error", err)
		}
	}()

	return &mongoSub{cancel: cancel}, nil
}

func mongoFilter(preds []Predicate) bson.M {
	filter := bson.M{}
	for _, p := range preds {
		switch p.Op {
		case ArrayContains:
			// $all so several membership predicates on the same field
			// (the unordered-pair query) compose instead of clobbering.
			if existing, ok := filter[p.Field].(bson.M); ok {
				existing["$all"] = append(existing["$all"].([]any), p.Value)
			} else {
				filter[p.Field] = bson.M{"$all": []any{p.Value}}
			}
		default:
			filter[p.Field] = p.Value
		}
	}
	return filter
}

func recordFromDoc(doc bson.M) Record {
	rec := Record{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case "_id":
			rec.ID, _ = v.(string)
		case "createdAt":
			rec.CreatedAt = asTime(v)
		default:
			// Normalize driver types so predicate matching and decoding
			// see the same shapes as the memory store.
			if arr, ok := v.(primitive.A); ok {
				v = []any(arr)
			}
			rec.Fields[k] = v
		}
	}
	return rec
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time()
	}
	return time.Time{}
}
