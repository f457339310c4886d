package order

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/order"
	"conference/internal/domain/pricing"
)

type intentDoc struct {
	OrderID     string    `bson:"_id"`
	Kind        string    `bson:"kind"`
	Amount      int64     `bson:"amount"`
	Currency    string    `bson:"currency"`
	Receipt     string    `bson:"receipt,omitempty"`
	Payload     string    `bson:"payload"`
	Status      string    `bson:"status"`
	RecordID    string    `bson:"recordId,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
	CompletedAt time.Time `bson:"completedAt,omitempty"`
}

func toDoc(in domain.Intent) intentDoc {
	return intentDoc{
		OrderID: in.OrderID, Kind: in.Kind, Amount: in.Amount, Currency: string(in.Currency),
		Receipt: in.Receipt, Payload: in.Payload, Status: in.Status, RecordID: in.RecordID,
		CreatedAt: in.CreatedAt, CompletedAt: in.CompletedAt,
	}
}

func (d intentDoc) model() domain.Intent {
	in := domain.Intent{
		OrderID: d.OrderID, Kind: d.Kind, Amount: d.Amount, Currency: pricing.Currency(d.Currency),
		Receipt: d.Receipt, Payload: d.Payload, Status: d.Status, RecordID: d.RecordID,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if !d.CompletedAt.IsZero() {
		in.CompletedAt = d.CompletedAt.UTC()
	}
	return in
}

// MongoStore implements the order intent Store interface on the order_intents collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates an order intent store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(storage.CollectionOrderIntents)}
}

// Save inserts the intent document keyed by order id.
func (s *MongoStore) Save(ctx context.Context, in domain.Intent) error {
	_, err := s.coll.InsertOne(ctx, toDoc(in))
	return err
}

// GetByOrderID retrieves the intent for a gateway order.
func (s *MongoStore) GetByOrderID(ctx context.Context, orderID string) (domain.Intent, error) {
	var d intentDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": orderID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Intent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Intent{}, err
	}
	return d.model(), nil
}

// Claim marks a pending intent completed with a status-guarded update.
func (s *MongoStore) Claim(ctx context.Context, orderID, recordID string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": orderID, "status": domain.StatusPending},
		bson.M{"$set": bson.M{"status": domain.StatusCompleted, "recordId": recordID, "completedAt": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetByOrderID(ctx, orderID); err != nil {
		return err
	}
	return domain.ErrAlreadyUsed
}

// Release returns a completed intent to pending.
func (s *MongoStore) Release(ctx context.Context, orderID string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": orderID, "status": domain.StatusCompleted},
		bson.M{
			"$set":   bson.M{"status": domain.StatusPending},
			"$unset": bson.M{"recordId": "", "completedAt": ""},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
