package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/outbox"
)

type entryDoc struct {
	ID              string    `bson:"_id"`
	ActionType      string    `bson:"actionType"`
	Payload         string    `bson:"payload"`
	Status          string    `bson:"status"`
	RecordKind      string    `bson:"recordKind,omitempty"`
	RecordID        string    `bson:"recordId,omitempty"`
	Attempts        int       `bson:"attempts"`
	MaxAttempts     int       `bson:"maxAttempts"`
	LastAttemptedAt time.Time `bson:"lastAttemptedAt"`
	NextAttemptAt   time.Time `bson:"nextAttemptAt"`
	CreatedAt       time.Time `bson:"createdAt"`
	ExternalID      string    `bson:"externalId,omitempty"`
	ErrorMessage    string    `bson:"errorMessage,omitempty"`
}

func toDoc(e domain.Entry) entryDoc {
	return entryDoc{
		ID: e.ID, ActionType: e.ActionType, Payload: e.Payload, Status: e.Status,
		RecordKind: e.RecordKind, RecordID: e.RecordID, Attempts: e.Attempts, MaxAttempts: e.MaxAttempts,
		LastAttemptedAt: e.LastAttemptedAt, NextAttemptAt: e.NextAttemptAt, CreatedAt: e.CreatedAt,
		ExternalID: e.ExternalID, ErrorMessage: e.ErrorMessage,
	}
}

func (d entryDoc) model() domain.Entry {
	e := domain.Entry{
		ID: d.ID, ActionType: d.ActionType, Payload: d.Payload, Status: d.Status,
		RecordKind: d.RecordKind, RecordID: d.RecordID, Attempts: d.Attempts, MaxAttempts: d.MaxAttempts,
		CreatedAt: d.CreatedAt.UTC(), ExternalID: d.ExternalID, ErrorMessage: d.ErrorMessage,
	}
	e.LastAttemptedAt = zeroOrUTC(d.LastAttemptedAt)
	e.NextAttemptAt = zeroOrUTC(d.NextAttemptAt)
	return e
}

func zeroOrUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

// MongoStore implements the outbox Store interface on the outbox collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates an outbox store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(storage.CollectionOutbox)}
}

// GetByID retrieves an outbox entry by its ID.
func (s *MongoStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	var d entryDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Entry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Entry{}, err
	}
	return d.model(), nil
}

// Save upserts the entry document.
func (s *MongoStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": e.ID}, toDoc(e), options.Replace().SetUpsert(true))
	return err
}

// ListDue returns retryable entries whose next attempt is at or before now.
func (s *MongoStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	filter := bson.M{
		"status":        bson.M{"$in": bson.A{domain.StatusPending, domain.StatusRetrying}},
		"nextAttemptAt": bson.M{"$lte": now},
		"$expr":         bson.M{"$lt": bson.A{"$attempts", "$maxAttempts"}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))
	return s.find(ctx, filter, opts)
}

// List returns entries with the given status, or every entry when status is empty.
func (s *MongoStore) List(ctx context.Context, status string, limit int) ([]domain.Entry, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	return s.find(ctx, filter, opts)
}

// Delete removes an outbox entry.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Entry, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []entryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Entry, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, nil
}
