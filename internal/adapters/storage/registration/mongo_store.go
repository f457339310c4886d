package registration

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference/internal/adapters/storage"
	"conference/internal/application/listutil"
	"conference/internal/domain/pricing"
	domain "conference/internal/domain/registration"
)

var mongoListSpec = storage.MongoListSpec{
	SearchFields: []string{"fullName", "email", "phone", "paymentId"},
	FilterFields: map[string]string{
		"category":     "category",
		"event_type":   "eventType",
		"payment_mode": "paymentMode",
		"currency":     "currency",
	},
	SortFields: map[string]string{
		"full_name":   "fullName",
		"email":       "email",
		"category":    "category",
		"event_type":  "eventType",
		"amount_paid": "amountPaid",
		"created_at":  "createdAt",
	},
}

type personDoc struct {
	Name string `bson:"name"`
}

type registrationDoc struct {
	ID                   string      `bson:"_id"`
	FullName             string      `bson:"fullName"`
	Email                string      `bson:"email"`
	Phone                string      `bson:"phone"`
	City                 string      `bson:"city"`
	Country              string      `bson:"country"`
	Pincode              string      `bson:"pincode"`
	Address              string      `bson:"address"`
	Category             string      `bson:"category"`
	EventType            string      `bson:"eventType"`
	Accompanying         string      `bson:"accompanying"`
	NumberOfAccompanying int         `bson:"numberOfAccompanying"`
	AccompanyingPersons  []personDoc `bson:"accompanyingPersons"`
	AmountPaid           float64     `bson:"amountPaid"`
	Currency             string      `bson:"currency"`
	PaymentID            string      `bson:"paymentId,omitempty"`
	OrderID              string      `bson:"orderId,omitempty"`
	PaymentMode          string      `bson:"paymentMode"`
	CouponCode           string      `bson:"couponCode,omitempty"`
	CreatedAt            time.Time   `bson:"createdAt"`
	UpdatedAt            time.Time   `bson:"updatedAt"`
}

func toDoc(r domain.Registration) registrationDoc {
	persons := make([]personDoc, len(r.AccompanyingPersons))
	for i, p := range r.AccompanyingPersons {
		persons[i] = personDoc{Name: p.Name}
	}
	return registrationDoc{
		ID: r.ID, FullName: r.FullName, Email: r.Email, Phone: r.Phone,
		City: r.City, Country: r.Country, Pincode: r.Pincode, Address: r.Address,
		Category: r.Category, EventType: r.EventType, Accompanying: r.Accompanying,
		NumberOfAccompanying: r.NumberOfAccompanying, AccompanyingPersons: persons,
		AmountPaid: r.AmountPaid, Currency: string(r.Currency), PaymentID: r.PaymentID,
		OrderID: r.OrderID, PaymentMode: r.PaymentMode, CouponCode: r.CouponCode,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (d registrationDoc) model() domain.Registration {
	persons := make([]domain.Person, len(d.AccompanyingPersons))
	for i, p := range d.AccompanyingPersons {
		persons[i] = domain.Person{Name: p.Name}
	}
	return domain.Registration{
		ID: d.ID,
		Contact: domain.Contact{
			FullName: d.FullName, Email: d.Email, Phone: d.Phone,
			City: d.City, Country: d.Country, Pincode: d.Pincode, Address: d.Address,
		},
		Category: d.Category, EventType: d.EventType, Accompanying: d.Accompanying,
		NumberOfAccompanying: d.NumberOfAccompanying, AccompanyingPersons: persons,
		AmountPaid: d.AmountPaid, Currency: pricing.Currency(d.Currency), PaymentID: d.PaymentID,
		OrderID: d.OrderID, PaymentMode: d.PaymentMode, CouponCode: d.CouponCode,
		CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// MongoStore implements the Store interface on the registrations collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a registration store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(storage.CollectionRegistrations)}
}

// GetByID retrieves a registration by its ID.
func (s *MongoStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	var d registrationDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Registration{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, err
	}
	return d.model(), nil
}

// Save upserts the registration document.
func (s *MongoStore) Save(ctx context.Context, r domain.Registration) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, toDoc(r), options.Replace().SetUpsert(true))
	return err
}

// Delete removes a registration.
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

// List returns one page of registrations matching q and the total match count.
func (s *MongoStore) List(ctx context.Context, q listutil.Query) ([]domain.Registration, int, error) {
	filter := mongoListSpec.Filter(q)
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.coll.Find(ctx, filter, mongoListSpec.FindOptions(q))
	if err != nil {
		return nil, 0, err
	}
	var docs []registrationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Registration, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, int(total), nil
}
