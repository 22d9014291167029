// Package mongostore provides a MongoDB implementation of records.Store.
package mongostore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linnemanlabs/ashabot/internal/records"
)

const (
	childrenCollection = "children"
	reportsCollection  = "symptom_reports"
)

// childDoc is the stored shape of a records.Child.
type childDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Name        string    `bson:"name"`
	DateOfBirth time.Time `bson:"dob"`
	CreatedAt   time.Time `bson:"created_at"`
}

// reportDoc is the stored shape of a records.SymptomReport.
type reportDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store persists children and symptom reports in MongoDB.
type Store struct {
	client   *mongo.Client
	children *mongo.Collection
	reports  *mongo.Collection
	now      func() time.Time
}

// New connects to MongoDB at uri, ensures indexes in database, and returns a
// ready Store.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		children: db.Collection(childrenCollection),
		reports:  db.Collection(reportsCollection),
		now:      time.Now,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.children.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create children index: %w", err)
	}
	if _, err := s.reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create symptom_reports index: %w", err)
	}
	return nil
}

// AddChild inserts a child document.
func (s *Store) AddChild(ctx context.Context, userID, name string, dob time.Time) error {
	_, err := s.children.InsertOne(ctx, childDoc{
		ID:          records.NewID(),
		UserID:      userID,
		Name:        name,
		DateOfBirth: dob.UTC(),
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: insert child: %w", records.ErrUnavailable, err)
	}
	return nil
}

// Children lists the children registered by userID, oldest first.
func (s *Store) Children(ctx context.Context, userID string) ([]records.Child, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.children.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find children: %w", records.ErrUnavailable, err)
	}

	var docs []childDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode children: %w", records.ErrUnavailable, err)
	}

	out := make([]records.Child, 0, len(docs))
	for _, d := range docs {
		out = append(out, records.Child{
			ID:          d.ID,
			UserID:      d.UserID,
			Name:        d.Name,
			DateOfBirth: d.DateOfBirth,
			CreatedAt:   d.CreatedAt,
		})
	}
	return out, nil
}

// LogSymptomReport inserts a report document.
func (s *Store) LogSymptomReport(ctx context.Context, userID, text string) error {
	_, err := s.reports.InsertOne(ctx, reportDoc{
		ID:        records.NewID(),
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: insert symptom report: %w", records.ErrUnavailable, err)
	}
	return nil
}

// CountRecentReports counts report documents since the given instant whose
// text matches any keyword as a case-insensitive literal substring.
func (s *Store) CountRecentReports(ctx context.Context, since time.Time, keywords []string) (int, error) {
	filter := recentReportsFilter(since, keywords)
	if filter == nil {
		return 0, nil
	}
	n, err := s.reports.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: count symptom reports: %w", records.ErrUnavailable, err)
	}
	return int(n), nil
}

// recentReportsFilter builds the count filter; nil means nothing can match.
func recentReportsFilter(since time.Time, keywords []string) bson.M {
	or := make(bson.A, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		or = append(or, bson.M{"text": primitive.Regex{Pattern: regexp.QuoteMeta(kw), Options: "i"}})
	}
	if len(or) == 0 {
		return nil
	}
	return bson.M{
		"created_at": bson.M{"$gte": since.UTC()},
		"$or":        or,
	}
}
