package history

import (
	"context"

	model "ChatBuddy/module/chat/model"
	"ChatBuddy/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Saver is the durable chat store contract the pipeline writes through.
type Saver interface {
	Save(ctx context.Context, m *model.ChatMessage) error
}

// Store writes finalized chat messages to the chats collection, keyed by
// chat_id.
type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(model.ChatTableName)}
}

// EnsureIndexes creates the unique chat_id index. Call once at startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.WrapMsg(err, "create chat_id index")
}

func (s *Store) Save(ctx context.Context, m *model.ChatMessage) error {
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		return errs.WrapMsg(err, "insert chat", "chat", m.ChatID)
	}
	return nil
}
