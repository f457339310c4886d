package pcc

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference/internal/adapters/storage"
	"conference/internal/application/listutil"
	"conference/internal/domain/course"
)

var mongoListSpec = storage.MongoListSpec{
	SearchFields: []string{"fullName", "email", "phone", "paymentId"},
	FilterFields: map[string]string{"course_code": "courseCode"},
	SortFields: map[string]string{
		"full_name":   "fullName",
		"email":       "email",
		"course_code": "courseCode",
		"amount":      "amount",
		"created_at":  "createdAt",
	},
}

type registrationDoc struct {
	ID         string    `bson:"_id"`
	FullName   string    `bson:"fullName"`
	Phone      string    `bson:"phone"`
	Email      string    `bson:"email"`
	CourseCode string    `bson:"courseCode"`
	CourseName string    `bson:"courseName"`
	CourseDate string    `bson:"courseDate,omitempty"`
	PaymentID  string    `bson:"paymentId,omitempty"`
	Amount     float64   `bson:"amount"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func toDoc(r course.Registration) registrationDoc {
	return registrationDoc{
		ID: r.ID, FullName: r.FullName, Phone: r.Phone, Email: r.Email,
		CourseCode: r.CourseCode, CourseName: r.CourseName, CourseDate: r.CourseDate,
		PaymentID: r.PaymentID, Amount: r.Amount, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (d registrationDoc) model() course.Registration {
	return course.Registration{
		ID: d.ID, FullName: d.FullName, Phone: d.Phone, Email: d.Email,
		CourseCode: d.CourseCode, CourseName: d.CourseName, CourseDate: d.CourseDate,
		PaymentID: d.PaymentID, Amount: d.Amount, CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// MongoStore implements Store on the pcc_registrations collection.
// It has no conditional insert, so callers fall back to count-then-save.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a course registration store on db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(storage.CollectionPCCRegistrations)}
}

// GetByID retrieves a course registration by its ID.
func (s *MongoStore) GetByID(ctx context.Context, id string) (course.Registration, error) {
	var d registrationDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return course.Registration{}, course.ErrRegistrationNotFound
	}
	if err != nil {
		return course.Registration{}, err
	}
	return d.model(), nil
}

// Save upserts the course registration document.
func (s *MongoStore) Save(ctx context.Context, r course.Registration) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, toDoc(r), options.Replace().SetUpsert(true))
	return err
}

// Delete removes a course registration.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return course.ErrRegistrationNotFound
	}
	return nil
}

// List returns one page of course registrations matching q and the total match count.
func (s *MongoStore) List(ctx context.Context, q listutil.Query) ([]course.Registration, int, error) {
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
	out := make([]course.Registration, len(docs))
	for i, d := range docs {
		out[i] = d.model()
	}
	return out, int(total), nil
}

// CountByCourse returns how many registrations exist for code.
func (s *MongoStore) CountByCourse(ctx context.Context, code string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"courseCode": code})
	return int(n), err
}
