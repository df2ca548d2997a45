package documents

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestMessageDocRoundTrip(t *testing.T) {
	ts := time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC)
	id := primitive.NewObjectID()
	raw, err := bson.Marshal(bson.M{
		"_id":       id,
		"text":      "",
		"user":      "Ana",
		"userEmail": "ana@x",
		"createdAt": ts,
		"imageUrl":  "https://img/a.jpg",
		"isImage":   true,
	})
	if err != nil {
		t.Fatal(err)
	}

	var d messageDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	m := d.message()
	if m.ID != id.Hex() {
		t.Errorf("ID = %q, want %q", m.ID, id.Hex())
	}
	if m.CreatedAt == nil || !m.CreatedAt.Equal(ts) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, ts)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestMessageDocWithoutCreatedAt(t *testing.T) {
	raw, _ := bson.Marshal(bson.M{"_id": primitive.NewObjectID(), "text": "hi"})
	var d messageDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatal(err)
	}
	if !d.message().Pending() {
		t.Error("document without createdAt should be pending")
	}
}

func TestConnectMongoReturnsWithoutServer(t *testing.T) {
	start := time.Now()
	m, disconnect, err := ConnectMongo(context.Background(), "mongodb://127.0.0.1:1/?connectTimeoutMS=200", "chat", "messages", zap.NewNop())
	if err != nil {
		t.Fatalf("ConnectMongo: %v", err)
	}
	defer func() { _ = disconnect(context.Background()) }()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("ConnectMongo took %s with no server", elapsed)
	}
	if m.indexed.Load() {
		t.Error("index marked as created before any server answer")
	}
}
