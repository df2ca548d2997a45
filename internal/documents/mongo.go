package documents

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/matheus3301/chatroom/internal/chat"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// messageDoc is the stored shape of a message.
type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Text      string             `bson:"text"`
	User      string             `bson:"user"`
	UserEmail string             `bson:"userEmail"`
	CreatedAt *time.Time         `bson:"createdAt"`
	ImageURL  string             `bson:"imageUrl,omitempty"`
	IsImage   bool               `bson:"isImage"`
}

func (d messageDoc) message() chat.Message {
	m := chat.Message{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		User:      d.User,
		UserEmail: d.UserEmail,
		ImageURL:  d.ImageURL,
		IsImage:   d.IsImage,
	}
	if d.CreatedAt != nil {
		ts := d.CreatedAt.UTC()
		m.CreatedAt = &ts
	}
	return m
}

// Mongo is a Channel over a MongoDB collection. Subscriptions use a change
// stream, so the deployment must be a replica set.
type Mongo struct {
	coll    *mongo.Collection
	logger  *zap.Logger
	indexed atomic.Bool
}

// NewMongo wraps an existing collection.
func NewMongo(coll *mongo.Collection, logger *zap.Logger) *Mongo {
	return &Mongo{coll: coll, logger: logger}
}

// ConnectMongo returns a channel over database.collection along with a
// disconnect function. It does not wait for the server: the driver connects
// in the background, so an offline start is not delayed.
func ConnectMongo(ctx context.Context, uri, database, collection string, logger *zap.Logger) (*Mongo, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	coll := client.Database(database).Collection(collection)
	return NewMongo(coll, logger), client.Disconnect, nil
}

// ensureIndex creates the createdAt index once the server has answered.
// A failed attempt is retried by the next subscription.
func (m *Mongo) ensureIndex(ctx context.Context) {
	if !m.indexed.CompareAndSwap(false, true) {
		return
	}
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}},
	})
	if err != nil {
		m.indexed.Store(false)
		m.logger.Warn("createdAt index not ensured", zap.Error(err))
	}
}

// Append inserts a new document with createdAt set by the server clock.
func (m *Mongo) Append(ctx context.Context, f Fields) (string, error) {
	id := primitive.NewObjectID()
	fields := bson.M{
		"text":      f.Text,
		"user":      f.User,
		"userEmail": f.UserEmail,
		"isImage":   f.IsImage,
	}
	if f.ImageURL != "" {
		fields["imageUrl"] = f.ImageURL
	}
	update := bson.M{
		"$setOnInsert": fields,
		"$currentDate": bson.M{"createdAt": true},
	}
	_, err := m.coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}
	return id.Hex(), nil
}

// Subscribe opens a change stream, delivers the current snapshot, and
// re-reads the collection after every change event.
func (m *Mongo) Subscribe(ctx context.Context, onSnapshot func([]chat.Message), onError func(error)) func() {
	sub, ctx := newSubscription(ctx, onSnapshot, onError)
	go m.watch(ctx, sub)
	return sub.unsubscribe
}

func (m *Mongo) watch(ctx context.Context, sub *subscription) {
	// Open the stream before the first read so no change falls in between.
	stream, err := m.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		if ctx.Err() == nil {
			sub.fail(fmt.Errorf("watch messages: %w", err))
		}
		return
	}
	defer func() { _ = stream.Close(context.Background()) }()

	if !m.deliver(ctx, sub) {
		return
	}
	m.ensureIndex(ctx)
	for stream.Next(ctx) {
		if !m.deliver(ctx, sub) {
			return
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		sub.fail(fmt.Errorf("message stream: %w", err))
	}
}

func (m *Mongo) deliver(ctx context.Context, sub *subscription) bool {
	msgs, err := m.query(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sub.fail(err)
		}
		return false
	}
	sub.snapshot(msgs)
	return true
}

func (m *Mongo) query(ctx context.Context) ([]chat.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []chat.Message{}
	for cur.Next(ctx) {
		var d messageDoc
		if err := cur.Decode(&d); err != nil {
			m.logger.Warn("skipping undecodable message", zap.Error(err))
			continue
		}
		out = append(out, d.message())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	sortByCreatedAt(out)
	return out, nil
}
