package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

const authCollection = "auth_users"

type MongoAuthRepository struct {
	coll *mongo.Collection
}

func NewAuthRepository(db *mongo.Database) *MongoAuthRepository {
	return &MongoAuthRepository{coll: db.Collection(authCollection)}
}

type mongoUser struct {
	ID           string `bson:"_id"`
	FirstName    string `bson:"first_name"`
	LastName     string `bson:"last_name"`
	Email        string `bson:"email"`
	Phone        string `bson:"phone,omitempty"`
	Role         string `bson:"role"`
	PasswordHash string `bson:"password_hash"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

// EnsureIndexes makes email unique so Create can report duplicates.
func (r *MongoAuthRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoAuthRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(account)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return fromMongoUser(doc), nil
}

func (r *MongoAuthRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return fromMongoUser(mu), nil
}

func toMongoUser(a *domain.Account) mongoUser {
	return mongoUser{
		ID:           string(a.ID),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Email:        a.Email,
		Phone:        a.Phone,
		Role:         string(a.Role),
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt.Unix(),
		UpdatedAt:    a.UpdatedAt.Unix(),
	}
}

func fromMongoUser(mu mongoUser) *domain.Account {
	return &domain.Account{
		User: domain.User{
			ID:        domain.UserID(mu.ID),
			FirstName: mu.FirstName,
			LastName:  mu.LastName,
			Email:     mu.Email,
			Phone:     mu.Phone,
			Role:      domain.Role(mu.Role),
		},
		PasswordHash: mu.PasswordHash,
		CreatedAt:    unixToTime(mu.CreatedAt),
		UpdatedAt:    unixToTime(mu.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
