package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB occupancy repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. seating
	Collection string // e.g. occupancy
}

// MongoOccupancyRepo implements OccupancyRepo on MongoDB backend.
// One document per occupied object, keyed by the object UUID string.
type MongoOccupancyRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
}

type occupancyDoc struct {
	ID        string    `bson:"_id"`
	LocalID   uint32    `bson:"local_id"`
	Scene     string    `bson:"scene"`
	Occupants []string  `bson:"occupants"`
	SitTarget string    `bson:"sit_target"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoOccupancyRepo establishes connection and returns repository.
func NewMongoOccupancyRepo(ctx context.Context, cfg MongoConfig) (*MongoOccupancyRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "seating"
	}
	if cfg.Collection == "" {
		cfg.Collection = "occupancy"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoOccupancyRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		ctxTimeout: 5 * time.Second,
	}, nil
}

// Save upserts the document only when the stored version is lower.
// An existing newer document makes the filter miss, and the upsert then
// collides on _id: that duplicate key error means the snapshot is stale.
func (m *MongoOccupancyRepo) Save(ctx context.Context, occ Occupancy) (bool, error) {
	if occ.ObjectID == uuid.Nil {
		return false, fmt.Errorf("invalid object id: %s", occ.ObjectID)
	}

	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	doc := toOccupancyDoc(occ)
	filter := bson.M{"_id": doc.ID, "version": bson.M{"$lt": doc.Version}}
	update := bson.M{"$set": bson.M{
		"local_id":   doc.LocalID,
		"scene":      doc.Scene,
		"occupants":  doc.Occupants,
		"sit_target": doc.SitTarget,
		"version":    doc.Version,
		"updated_at": doc.UpdatedAt,
	}}

	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("save occupancy %s: %w", occ.ObjectID, err)
	}
	return true, nil
}

// Load returns the stored snapshot of the object.
func (m *MongoOccupancyRepo) Load(ctx context.Context, objectID uuid.UUID) (Occupancy, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc occupancyDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": objectID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Occupancy{}, false, nil
	}
	if err != nil {
		return Occupancy{}, false, fmt.Errorf("load occupancy %s: %w", objectID, err)
	}

	occ, err := doc.toOccupancy()
	if err != nil {
		return Occupancy{}, false, fmt.Errorf("load occupancy %s: %w", objectID, err)
	}
	if occ.Vacant() {
		return Occupancy{}, false, nil
	}
	return occ, true, nil
}

// Delete removes the snapshot of the object.
func (m *MongoOccupancyRepo) Delete(ctx context.Context, objectID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": objectID.String()}); err != nil {
		return fmt.Errorf("delete occupancy %s: %w", objectID, err)
	}
	return nil
}

// Close disconnects the client.
func (m *MongoOccupancyRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func toOccupancyDoc(occ Occupancy) occupancyDoc {
	occupants := make([]string, len(occ.Occupants))
	for i, id := range occ.Occupants {
		occupants[i] = id.String()
	}
	updated := occ.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return occupancyDoc{
		ID:        occ.ObjectID.String(),
		LocalID:   occ.LocalID,
		Scene:     occ.Scene,
		Occupants: occupants,
		SitTarget: occ.SitTarget.String(),
		Version:   int64(occ.Version),
		UpdatedAt: updated,
	}
}

func (d occupancyDoc) toOccupancy() (Occupancy, error) {
	objectID, err := uuid.Parse(d.ID)
	if err != nil {
		return Occupancy{}, err
	}
	target, err := uuid.Parse(d.SitTarget)
	if err != nil {
		return Occupancy{}, err
	}
	occupants := make([]uuid.UUID, 0, len(d.Occupants))
	for _, s := range d.Occupants {
		id, err := uuid.Parse(s)
		if err != nil {
			return Occupancy{}, err
		}
		occupants = append(occupants, id)
	}
	return Occupancy{
		ObjectID:  objectID,
		LocalID:   d.LocalID,
		Scene:     d.Scene,
		Occupants: occupants,
		SitTarget: target,
		Version:   uint64(d.Version),
		UpdatedAt: d.UpdatedAt,
	}, nil
}
