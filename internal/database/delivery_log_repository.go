package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DeliveryLogCollection is the Mongo collection holding channel attempts
const DeliveryLogCollection = "sos_delivery_attempts"

// deliveryLogRetention bounds how long raw provider diagnostics are kept
const deliveryLogRetention = 90 * 24 * time.Hour

// DeliveryLogEntry is one channel attempt for one contact of one incident
type DeliveryLogEntry struct {
	IncidentID     string    `bson:"incident_id" json:"incidentId"`
	OrganizationID string    `bson:"organization_id" json:"organizationId"`
	EmployeeID     string    `bson:"employee_id" json:"employeeId"`
	ContactName    string    `bson:"contact_name" json:"contactName"`
	Phone          string    `bson:"phone" json:"phone"`
	Channel        string    `bson:"channel" json:"channel"`
	Provider       string    `bson:"provider,omitempty" json:"provider,omitempty"`
	Success        bool      `bson:"success" json:"success"`
	DeliveryID     string    `bson:"delivery_id,omitempty" json:"deliveryId,omitempty"`
	Error          string    `bson:"error,omitempty" json:"error,omitempty"`
	DurationMs     int64     `bson:"duration_ms" json:"durationMs"`
	AttemptedAt    time.Time `bson:"attempted_at" json:"attemptedAt"`
}

// DeliveryLogRepository stores channel attempts for diagnostics
type DeliveryLogRepository interface {
	Record(ctx context.Context, entries []DeliveryLogEntry) error
	ListByIncident(ctx context.Context, incidentID string) ([]DeliveryLogEntry, error)
}

type mongoDeliveryLogRepository struct {
	collection *mongo.Collection
}

// NewDeliveryLogRepository creates a Mongo-backed delivery log
func NewDeliveryLogRepository(collection *mongo.Collection) DeliveryLogRepository {
	return &mongoDeliveryLogRepository{collection: collection}
}

// ConnectMongo opens and pings a Mongo client
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, nil
}

// EnsureDeliveryLogIndexes creates the lookup and retention indexes
func EnsureDeliveryLogIndexes(ctx context.Context, coll *mongo.Collection) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "incident_id", Value: 1},
				{Key: "attempted_at", Value: 1},
			},
			Options: options.Index().SetName("incident_attempts"),
		},
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "attempted_at", Value: -1},
			},
			Options: options.Index().SetName("organization_recent"),
		},
		{
			Keys: bson.D{{Key: "attempted_at", Value: 1}},
			Options: options.Index().
				SetName("retention").
				SetExpireAfterSeconds(int32(deliveryLogRetention.Seconds())),
		},
	}

	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create delivery log indexes: %w", err)
	}
	return nil
}

func (r *mongoDeliveryLogRepository) Record(ctx context.Context, entries []DeliveryLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]interface{}, len(entries))
	for i := range entries {
		docs[i] = entries[i]
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to record delivery attempts: %w", err)
	}
	return nil
}

func (r *mongoDeliveryLogRepository) ListByIncident(ctx context.Context, incidentID string) ([]DeliveryLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "attempted_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"incident_id": incidentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find delivery attempts: %w", err)
	}

	entries := []DeliveryLogEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode delivery attempts: %w", err)
	}
	return entries, nil
}
