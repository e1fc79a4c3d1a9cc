// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/mongoutil"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// EnsureIndexes creates the moderator lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "moderator_id", Value: 1}},
		Options: options.Index().SetName("idx_moderator"),
	})
	return err
}

func (s *Store) GetGroup(ctx context.Context, id string) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, mongoutil.Translate(err)
	}
	return g, nil
}

// ListGroups returns all groups ordered by case-folded name.
func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mongoutil.Translate(err)
	}
	defer cur.Close(ctx)

	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoutil.Translate(err)
	}
	return out, nil
}

// CreateGroup inserts g as an open group at version 1.
func (s *Store) CreateGroup(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID().Hex()
	g.NameCI = text.Fold(g.Name)
	g.Status = models.GroupOpen
	g.IsDrawDone = false
	g.Version = 1
	g.CreatedAt = now
	g.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, mongoutil.Translate(err)
	}
	return g, nil
}

// WriteGroup applies patch and bumps the version. With patch.IfVersion set
// the update is a compare-and-set; a stale version yields
// storeapi.ErrVersionConflict.
func (s *Store) WriteGroup(ctx context.Context, id string, patch storeapi.GroupPatch) (models.Group, error) {
	filter := bson.M{"_id": id}
	if patch.IfVersion != nil {
		filter["version"] = *patch.IfVersion
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.IsDrawDone != nil {
		set["is_draw_done"] = *patch.IsDrawDone
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	var g models.Group
	err := s.c.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&g)
	if err == nil {
		return g, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) && patch.IfVersion != nil {
		// Distinguish a missing group from a stale version.
		if _, getErr := s.GetGroup(ctx, id); getErr == nil {
			return models.Group{}, storeapi.ErrVersionConflict
		}
	}
	return models.Group{}, mongoutil.Translate(err)
}
