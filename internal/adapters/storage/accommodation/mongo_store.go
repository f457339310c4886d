package accommodation

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference/internal/adapters/storage"
	"conference/internal/application/listutil"
	domain "conference/internal/domain/accommodation"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

var mongoListSpec = storage.MongoListSpec{
	SearchFields: []string{"fullName", "email", "phone", "twinSharingDelegateName"},
	FilterFields: map[string]string{
		"delegate_type": "delegateType",
		"room_type":     "roomType",
		"payment_mode":  "paymentMode",
	},
	SortFields: map[string]string{
		"full_name":     "fullName",
		"email":         "email",
		"delegate_type": "delegateType",
		"room_type":     "roomType",
		"check_in_date": "checkInDate",
		"amount_paid":   "amountPaid",
		"created_at":    "createdAt",
	},
}

type bookingDoc struct {
	ID                      string    `bson:"_id"`
	Title                   string    `bson:"title,omitempty"`
	FullName                string    `bson:"fullName"`
	Email                   string    `bson:"email"`
	Phone                   string    `bson:"phone"`
	City                    string    `bson:"city"`
	Country                 string    `bson:"country"`
	Pincode                 string    `bson:"pincode"`
	Address                 string    `bson:"address"`
	DelegateType            string    `bson:"delegateType"`
	RoomType                string    `bson:"roomType"`
	TwinSharingDelegateName string    `bson:"twinSharingDelegateName,omitempty"`
	CheckInDate             time.Time `bson:"checkInDate"`
	CheckOutDate            time.Time `bson:"checkOutDate"`
	AmountPaid              float64   `bson:"amountPaid"`
	Currency                string    `bson:"currency"`
	PaymentID               string    `bson:"paymentId,omitempty"`
	OrderID                 string    `bson:"orderId,omitempty"`
	PaymentMode             string    `bson:"paymentMode"`
	CreatedAt               time.Time `bson:"createdAt"`
	UpdatedAt               time.Time `bson:"updatedAt"`
}

func toDoc(b domain.Booking) bookingDoc {
	return bookingDoc{
		ID: b.ID, Title: b.Title, FullName: b.FullName, Email: b.Email, Phone: b.Phone,
		City: b.City, Country: b.Country, Pincode: b.Pincode, Address: b.Address,
		DelegateType: b.DelegateType, RoomType: b.RoomType, TwinSharingDelegateName: b.TwinSharingDelegateName,
		CheckInDate: b.CheckInDate, CheckOutDate: b.CheckOutDate,
		AmountPaid: b.AmountPaid, Currency: string(b.Currency), PaymentID: b.PaymentID,
		OrderID: b.OrderID, PaymentMode: b.PaymentMode, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

func (d bookingDoc) model() domain.Booking {
	return domain.Booking{
		ID:    d.ID,
		Title: d.Title,
		Contact: registration.Contact{
			FullName: d.FullName, Email: d.Email, Phone: d.Phone,
			City: d.City, Country: d.Country, Pincode: d.Pincode, Address: d.Address,
		},
		DelegateType: d.DelegateType, RoomType: d.RoomType, TwinSharingDelegateName: d.TwinSharingDelegateName,
		CheckInDate: d.CheckInDate.UTC(), CheckOutDate: d.CheckOutDate.UTC(),
		AmountPaid: d.AmountPaid, Currency: pricing.Currency(d.Currency), PaymentID: d.PaymentID,
		OrderID: d.OrderID, PaymentMode: d.PaymentMode,
		CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// MongoStore implements the Store interface on the accommodations collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates an accommodation store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(storage.CollectionAccommodations)}
}

// GetByID retrieves a booking by its ID.
func (s *MongoStore) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	var d bookingDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	return d.model(), nil
}

// Save upserts the booking document.
func (s *MongoStore) Save(ctx context.Context, b domain.Booking) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": b.ID}, toDoc(b), options.Replace().SetUpsert(true))
	return err
}

// Delete removes a booking.
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

// List returns one page of bookings matching q and the total match count.
func (s *MongoStore) List(ctx context.Context, q listutil.Query) ([]domain.Booking, int, error) {
	filter := mongoListSpec.Filter(q)
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.coll.Find(ctx, filter, mongoListSpec.FindOptions(q))
	if err != nil {
		return nil, 0, err
	}
	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Booking, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, int(total), nil
}
