package repository

import (
	"context"
	"errors"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/database"
	errprocess "realtime_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomScope which rooms of a member to list
type RoomScope int

const (
	// ScopeAll direct and group rooms
	ScopeAll RoomScope = iota
	// ScopeGroup rooms shown in the group listing
	ScopeGroup
	// ScopeDirect two-member private rooms
	ScopeDirect
)

// RoomRepository definition chat room
type RoomRepository interface {
	EnsureIndexes(ctx context.Context) error
	// CreateRoom returns errprocess.ErrDuplicateDirect when the direct key already exists
	CreateRoom(ctx context.Context, room *domain.Room) error
	FindByID(ctx context.Context, roomID string) (*domain.Room, error)
	// FindDirectRoom returns nil, nil when the pair has no direct room
	FindDirectRoom(ctx context.Context, q *domain.FindDirectRoomQuery) (*domain.Room, error)
	FindMemberRooms(ctx context.Context, userID string, scope RoomScope) ([]*domain.Room, error)
	// AddMember false when already a member
	AddMember(ctx context.Context, roomID, userID string, joinedAt time.Time) (bool, error)
	// RemoveMember false when not a member, also drops the unread counter
	RemoveMember(ctx context.Context, roomID, userID string) (bool, error)
	SetAdmin(ctx context.Context, roomID, adminID string) error
	// SetLastMessage nil preview clears the pointer
	SetLastMessage(ctx context.Context, roomID string, preview *domain.MessagePreview) error
	IncrementUnread(ctx context.Context, roomID string, userIDs []string) error
	ResetUnread(ctx context.Context, roomID, userID string) error
}

type chatRepository struct {
	roomsColl *mongo.Collection
}

// NewMongoChatRepository create new mongo chat
func NewMongoChatRepository(db *mongo.Database) RoomRepository {
	return &chatRepository{
		roomsColl: db.Collection(domain.RoomsCollection),
	}
}

// EnsureIndexes direct_key unique 保證同一 pair 只會有一個 direct room
func (r *chatRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.roomsColl, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "direct_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_direct_key").
				SetPartialFilterExpression(bson.M{"direct_key": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "members.user_id", Value: 1}}, Options: options.Index().SetName("member")},
	})
}

// CreateRoom create room
func (r *chatRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := r.roomsColl.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return errprocess.ErrDuplicateDirect
	}
	return err
}

// FindByID find room by id
func (r *chatRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.roomsColl.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindDirectRoom private room with exactly the member set {A,B}
func (r *chatRepository) FindDirectRoom(ctx context.Context, q *domain.FindDirectRoomQuery) (*domain.Room, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{
				"direct_key":      domain.DirectKey(q.MemberA, q.MemberB),
				"members.user_id": bson.M{"$all": bson.A{q.MemberA, q.MemberB}},
			},
			bson.M{
				"is_private":      true,
				"members":         bson.M{"$size": 2},
				"members.user_id": bson.M{"$all": bson.A{q.MemberA, q.MemberB}},
			},
		},
	}
	var room domain.Room
	err := r.roomsColl.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindMemberRooms rooms of userID, most recently updated first
func (r *chatRepository) FindMemberRooms(ctx context.Context, userID string, scope RoomScope) ([]*domain.Room, error) {
	filter := bson.M{"members.user_id": userID}
	switch scope {
	case ScopeGroup:
		filter["$or"] = bson.A{
			bson.M{"is_private": false},
			bson.M{"members.2": bson.M{"$exists": true}},
		}
	case ScopeDirect:
		filter["is_private"] = true
		filter["members"] = bson.M{"$size": 2}
	}

	cur, err := r.roomsColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	rooms := []*domain.Room{}
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *chatRepository) AddMember(ctx context.Context, roomID, userID string, joinedAt time.Time) (bool, error) {
	res, err := r.roomsColl.UpdateOne(ctx,
		bson.M{"_id": roomID, "members.user_id": bson.M{"$ne": userID}},
		bson.M{
			"$push": bson.M{"members": domain.RoomMember{UserID: userID, JoinedAt: joinedAt}},
			"$set":  bson.M{"unread_counts." + userID: 0, "updated_at": joinedAt},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *chatRepository) RemoveMember(ctx context.Context, roomID, userID string) (bool, error) {
	res, err := r.roomsColl.UpdateOne(ctx,
		bson.M{"_id": roomID, "members.user_id": userID},
		bson.M{
			"$pull":  bson.M{"members": bson.M{"user_id": userID}},
			"$unset": bson.M{"unread_counts." + userID: ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *chatRepository) SetAdmin(ctx context.Context, roomID, adminID string) error {
	return r.update(ctx, roomID, bson.M{"$set": bson.M{"admin_id": adminID, "updated_at": time.Now().UTC()}})
}

func (r *chatRepository) SetLastMessage(ctx context.Context, roomID string, preview *domain.MessagePreview) error {
	if preview == nil {
		return r.update(ctx, roomID, bson.M{"$unset": bson.M{"last_message": ""}})
	}
	return r.update(ctx, roomID, bson.M{"$set": bson.M{"last_message": preview, "updated_at": preview.CreatedAt}})
}

// IncrementUnread $inc 每位成員的計數, 單一 document 原子更新
func (r *chatRepository) IncrementUnread(ctx context.Context, roomID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	inc := bson.M{}
	for _, id := range userIDs {
		inc["unread_counts."+id] = 1
	}
	return r.update(ctx, roomID, bson.M{"$inc": inc})
}

func (r *chatRepository) ResetUnread(ctx context.Context, roomID, userID string) error {
	return r.update(ctx, roomID, bson.M{"$set": bson.M{"unread_counts." + userID: 0}})
}

func (r *chatRepository) update(ctx context.Context, roomID string, update bson.M) error {
	res, err := r.roomsColl.UpdateOne(ctx, bson.M{"_id": roomID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errprocess.ErrRoomNotFound
	}
	return nil
}
