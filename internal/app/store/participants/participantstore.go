// internal/app/store/participants/participantstore.go
package participantstore

// Terminology: Identifiers
//   - ParticipantID / id: the participant record's own _id
//   - UserID / user_id: the user this participation belongs to
//   - GifteeID / giftee_id: the user this participant gifts to (null before a draw)

import (
	"context"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/mongoutil"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("participants")}
}

// EnsureIndexes creates the unique (group_id, user_id) index and the
// lookup index used by the participant views.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_group_user"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_group_status"),
		},
	})
	return err
}

func filterDoc(f storeapi.ParticipantFilter) bson.M {
	filter := bson.M{}
	if f.GroupID != "" {
		filter["group_id"] = f.GroupID
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

// ListParticipants returns the participants matching f, oldest first.
func (s *Store) ListParticipants(ctx context.Context, f storeapi.ParticipantFilter) ([]models.Participant, error) {
	cur, err := s.c.Find(ctx, filterDoc(f), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, mongoutil.Translate(err)
	}
	defer cur.Close(ctx)

	var out []models.Participant
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoutil.Translate(err)
	}
	return out, nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (models.Participant, error) {
	var p models.Participant
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Participant{}, mongoutil.Translate(err)
	}
	return p, nil
}

// CreateParticipant inserts p as a new pending participant unless a status
// is already set. A second participation of the same user in the same group
// returns storeapi.ErrDuplicate.
func (s *Store) CreateParticipant(ctx context.Context, p models.Participant) (models.Participant, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID().Hex()
	if p.Status == "" {
		p.Status = models.ParticipantPending
	}
	p.GifteeID = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Participant{}, mongoutil.Translate(err)
	}
	return p, nil
}

// WriteParticipant applies patch and returns the updated record.
func (s *Store) WriteParticipant(ctx context.Context, id string, patch storeapi.ParticipantPatch) (models.Participant, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	switch {
	case patch.ClearGiftee:
		set["giftee_id"] = nil
	case patch.GifteeID != nil:
		set["giftee_id"] = *patch.GifteeID
	}

	var p models.Participant
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return models.Participant{}, mongoutil.Translate(err)
	}
	return p, nil
}

func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoutil.Translate(err)
	}
	if res.DeletedCount == 0 {
		return storeapi.ErrNotFound
	}
	return nil
}
