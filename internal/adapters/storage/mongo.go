package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference/internal/adapters/http/perf"
	"conference/internal/application/listutil"
)

// Collection names in the document store.
const (
	CollectionRegistrations    = "registrations"
	CollectionAccommodations   = "accommodations"
	CollectionPCCRegistrations = "pcc_registrations"
	CollectionOutbox           = "outbox"
	CollectionOrderIntents     = "order_intents"
)

// ConnectMongo connects to uri, pings the primary and ensures indexes on dbName.
// Every command is timed into collector under labels like "mongo find registrations".
// PRE: uri is a mongodb:// or mongodb+srv:// URI
// POST: Returns a connected client and its database, or an error with the client disconnected
func ConnectMongo(ctx context.Context, uri, dbName string, collector *perf.Collector) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(commandMonitor(collector))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(dbName)
	if err := EnsureMongoIndexes(ctx, db); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, db, nil
}

// EnsureMongoIndexes creates the secondary indexes the stores query by. Idempotent.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionRegistrations: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		CollectionAccommodations: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		CollectionPCCRegistrations: {
			{Keys: bson.D{{Key: "courseCode", Value: 1}}},
		},
		CollectionOutbox: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "nextAttemptAt", Value: 1}}},
		},
		CollectionOrderIntents: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func commandMonitor(collector *perf.Collector) *event.CommandMonitor {
	var targets sync.Map // request id -> collection name
	finish := func(e event.CommandFinishedEvent) {
		label := "mongo " + e.CommandName
		if coll, ok := targets.LoadAndDelete(e.RequestID); ok {
			label += " " + coll.(string)
		}
		recordQuery(collector, slowQueryThreshold(), label, time.Now().Add(-e.Duration), e.Duration)
	}
	return &event.CommandMonitor{
		Started: func(_ context.Context, e *event.CommandStartedEvent) {
			if v, err := e.Command.LookupErr(e.CommandName); err == nil {
				if coll, ok := v.StringValueOK(); ok {
					targets.Store(e.RequestID, coll)
				}
			}
		},
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			finish(e.CommandFinishedEvent)
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			finish(e.CommandFinishedEvent)
		},
	}
}

// MongoListSpec maps admin list parameters onto document fields.
type MongoListSpec struct {
	SearchFields []string
	FilterFields map[string]string
	SortFields   map[string]string
}

// Filter builds the query document for q.
func (s MongoListSpec) Filter(q listutil.Query) bson.M {
	filter := bson.M{}
	if term := strings.TrimSpace(q.Search); term != "" && len(s.SearchFields) > 0 {
		pattern := regexp.QuoteMeta(term)
		ors := make(bson.A, len(s.SearchFields))
		for i, f := range s.SearchFields {
			ors[i] = bson.M{f: bson.M{"$regex": pattern, "$options": "i"}}
		}
		filter["$or"] = ors
	}
	for key, field := range s.FilterFields {
		if v, ok := q.Filters[key]; ok && v != "" {
			filter[field] = v
		}
	}
	return filter
}

// FindOptions returns sort, skip and limit for q. Unknown sorts fall back to newest first.
func (s MongoListSpec) FindOptions(q listutil.Query) *options.FindOptions {
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	if field, ok := s.SortFields[q.Sort]; ok {
		dir := 1
		if q.Desc {
			dir = -1
		}
		sort = bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}
	}
	opts := options.Find().SetSort(sort)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit)).SetSkip(int64(max(q.Offset, 0)))
	}
	return opts
}
