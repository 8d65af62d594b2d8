package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/database"
	errprocess "realtime_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition chat message
type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// FindByRoom newest first, at most q.Limit
	FindByRoom(ctx context.Context, q *domain.MessageQuery) ([]*domain.Message, error)
	// FindLatest nil, nil when the room has no message
	FindLatest(ctx context.Context, roomID string) (*domain.Message, error)
	UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) (*domain.Message, error)
	Delete(ctx context.Context, messageID string) error
	// SetReaction replace userID's reaction with emoji
	SetReaction(ctx context.Context, messageID, userID, emoji string) (*domain.Message, error)
	RemoveReaction(ctx context.Context, messageID, userID string) (*domain.Message, error)
	// AddReadReceipt false when userID already read it
	AddReadReceipt(ctx context.Context, messageID, userID string, at time.Time) (bool, error)
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection(domain.MessagesCollection),
	}
}

func (r *chatMessageRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.coll, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("room_created"),
		},
	})
}

// Insert 寫入一筆聊天訊息
func (r *chatMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	if msg.Reactions == nil {
		msg.Reactions = []domain.Reaction{}
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []domain.ReadReceipt{}
	}
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *chatMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepository) FindByRoom(ctx context.Context, q *domain.MessageQuery) ([]*domain.Message, error) {
	filter := bson.M{"room_id": q.RoomID}
	if !q.Before.IsZero() {
		filter["created_at"] = bson.M{"$lt": q.Before}
	}
	if q.Keyword != "" {
		filter["content"] = bson.M{"$regex": regexp.QuoteMeta(q.Keyword), "$options": "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	msgs := []*domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatMessageRepository) FindLatest(ctx context.Context, roomID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"room_id": roomID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepository) UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) (*domain.Message, error) {
	return r.findAndUpdate(ctx, messageID, bson.M{
		"$set": bson.M{"content": content, "is_edited": true, "edited_at": editedAt},
	})
}

func (r *chatMessageRepository) Delete(ctx context.Context, messageID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errprocess.ErrMessageNotFound
	}
	return nil
}

// SetReaction 以 pipeline 一次移除舊 reaction 並加入新 reaction
func (r *chatMessageRepository) SetReaction(ctx context.Context, messageID, userID, emoji string) (*domain.Message, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reactions": bson.M{"$concatArrays": bson.A{
				withoutUser("$reactions", userID),
				bson.A{bson.M{"$literal": domain.Reaction{UserID: userID, Emoji: emoji}}},
			}},
		}}},
	}
	return r.findAndUpdate(ctx, messageID, pipeline)
}

func (r *chatMessageRepository) RemoveReaction(ctx context.Context, messageID, userID string) (*domain.Message, error) {
	return r.findAndUpdate(ctx, messageID, bson.M{
		"$pull": bson.M{"reactions": bson.M{"user_id": userID}},
	})
}

func (r *chatMessageRepository) AddReadReceipt(ctx context.Context, messageID, userID string, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": messageID, "read_by.user_id": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"read_by": domain.ReadReceipt{UserID: userID, ReadAt: at}}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *chatMessageRepository) findAndUpdate(ctx context.Context, messageID string, update interface{}) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": messageID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func withoutUser(field, userID string) bson.M {
	return bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{field, bson.A{}}},
		"as":    "r",
		"cond":  bson.M{"$ne": bson.A{"$$r.user_id", userID}},
	}}
}
