package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/database"
	errprocess "realtime_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository definition identity store
type UserRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateUser(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	FindByIDs(ctx context.Context, userIDs []string) ([]*domain.User, error)
	FindUsers(ctx context.Context, q *domain.UserQuery) ([]*domain.User, int64, error)
	UpdateProfile(ctx context.Context, userID string, username, avatar *string) (*domain.User, error)
	AddFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	AddBlocked(ctx context.Context, userID, targetID string) error
	RemoveBlocked(ctx context.Context, userID, targetID string) error
	UpdatePresence(ctx context.Context, userID string, status domain.PresenceStatus, lastSeen time.Time) error
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository create new mongo user repository
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: db.Collection(domain.UsersCollection)}
}

func (r *mongoUserRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.coll, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
	})
}

// CreateUser insert user, friends/blocked start empty
func (r *mongoUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.Friends == nil {
		user.Friends = []string{}
	}
	if user.BlockedUsers == nil {
		user.BlockedUsers = []string{}
	}
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "email") {
			return errprocess.ErrEmailExists
		}
		return errprocess.ErrUsernameExists
	}
	return err
}

func (r *mongoUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByIDs(ctx context.Context, userIDs []string) ([]*domain.User, error) {
	if len(userIDs) == 0 {
		return []*domain.User{}, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	users := []*domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindUsers keyword 搜尋 username/email, 依 username 排序
func (r *mongoUserRepository) FindUsers(ctx context.Context, q *domain.UserQuery) ([]*domain.User, int64, error) {
	filter := bson.M{}
	if len(q.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": q.ExcludeIDs}
	}
	if q.Keyword != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q.Keyword), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"username": pattern}, bson.M{"email": pattern}}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	users := []*domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *mongoUserRepository) UpdateProfile(ctx context.Context, userID string, username, avatar *string) (*domain.User, error) {
	set := bson.M{}
	if username != nil {
		set["username"] = *username
	}
	if avatar != nil {
		set["avatar"] = *avatar
	}
	if len(set) == 0 {
		return r.FindByID(ctx, userID)
	}

	var user domain.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.ErrUserNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, errprocess.ErrUsernameExists
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	return r.update(ctx, userID, bson.M{"$addToSet": bson.M{"friends": friendID}})
}

func (r *mongoUserRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"friends": friendID}})
}

func (r *mongoUserRepository) AddBlocked(ctx context.Context, userID, targetID string) error {
	return r.update(ctx, userID, bson.M{"$addToSet": bson.M{"blocked_users": targetID}})
}

func (r *mongoUserRepository) RemoveBlocked(ctx context.Context, userID, targetID string) error {
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"blocked_users": targetID}})
}

func (r *mongoUserRepository) UpdatePresence(ctx context.Context, userID string, status domain.PresenceStatus, lastSeen time.Time) error {
	return r.update(ctx, userID, bson.M{"$set": bson.M{"status": status, "last_seen": lastSeen}})
}

func (r *mongoUserRepository) update(ctx context.Context, userID string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errprocess.ErrUserNotFound
	}
	return nil
}
