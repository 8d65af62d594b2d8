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

// FriendRequestRepository definition friend request store
type FriendRequestRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, req *domain.FriendRequest) error
	FindByID(ctx context.Context, requestID string) (*domain.FriendRequest, error)
	// FindPending returns nil, nil when no pending request exists for from -> to
	FindPending(ctx context.Context, fromID, toID string) (*domain.FriendRequest, error)
	ListPending(ctx context.Context, userID string) (incoming, outgoing []*domain.FriendRequest, err error)
	// UpdateStatus conditional transition, false when the request was not in status `from`
	UpdateStatus(ctx context.Context, requestID string, from, to domain.FriendRequestStatus) (bool, error)
	// DeletePendingBetween removes pending requests in both directions
	DeletePendingBetween(ctx context.Context, userA, userB string) (int64, error)
}

type mongoFriendRequestRepository struct {
	coll *mongo.Collection
}

// NewMongoFriendRequestRepository create new mongo friend request repository
func NewMongoFriendRequestRepository(db *mongo.Database) FriendRequestRepository {
	return &mongoFriendRequestRepository{coll: db.Collection(domain.FriendRequestsCollection)}
}

// EnsureIndexes 一個 ordered pair 只能有一筆 pending
func (r *mongoFriendRequestRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.coll, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "from_id", Value: 1}, {Key: "to_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_pending_pair").
				SetPartialFilterExpression(bson.M{"status": domain.RequestPending}),
		},
		{Keys: bson.D{{Key: "to_id", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("incoming")},
	})
}

func (r *mongoFriendRequestRepository) Create(ctx context.Context, req *domain.FriendRequest) error {
	_, err := r.coll.InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		return errprocess.ErrRequestPending
	}
	return err
}

func (r *mongoFriendRequestRepository) FindByID(ctx context.Context, requestID string) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := r.coll.FindOne(ctx, bson.M{"_id": requestID}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errprocess.ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *mongoFriendRequestRepository) FindPending(ctx context.Context, fromID, toID string) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := r.coll.FindOne(ctx, bson.M{"from_id": fromID, "to_id": toID, "status": domain.RequestPending}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *mongoFriendRequestRepository) ListPending(ctx context.Context, userID string) ([]*domain.FriendRequest, []*domain.FriendRequest, error) {
	filter := bson.M{
		"status": domain.RequestPending,
		"$or":    bson.A{bson.M{"to_id": userID}, bson.M{"from_id": userID}},
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, nil, err
	}
	var all []*domain.FriendRequest
	if err := cur.All(ctx, &all); err != nil {
		return nil, nil, err
	}

	incoming := []*domain.FriendRequest{}
	outgoing := []*domain.FriendRequest{}
	for _, req := range all {
		if req.ToID == userID {
			incoming = append(incoming, req)
		} else {
			outgoing = append(outgoing, req)
		}
	}
	return incoming, outgoing, nil
}

func (r *mongoFriendRequestRepository) UpdateStatus(ctx context.Context, requestID string, from, to domain.FriendRequestStatus) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoFriendRequestRepository) DeletePendingBetween(ctx context.Context, userA, userB string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{
		"status": domain.RequestPending,
		"$or": bson.A{
			bson.M{"from_id": userA, "to_id": userB},
			bson.M{"from_id": userB, "to_id": userA},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
