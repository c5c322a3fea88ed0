package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestObjectStoreRoundTrip(t *testing.T) {
	endpoint := strings.TrimSpace(os.Getenv("TODO_TEST_S3_ENDPOINT"))
	if endpoint == "" {
		t.Skip("TODO_TEST_S3_ENDPOINT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	objects, err := NewObjectStore(ctx, ObjectStoreOptions{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("TODO_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("TODO_TEST_S3_SECRET_KEY"),
		Bucket:    "todaytasks-test",
	})
	if err != nil {
		t.Fatalf("NewObjectStore() error = %v", err)
	}
	if err := objects.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	name := "missing-" + time.Now().Format("150405.000000") + ".json"
	if _, err := objects.Get(ctx, name); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	body := []byte(`[{"id":"a"}]`)
	if err := objects.Put(ctx, VisitorsDocument, body); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := objects.Get(ctx, VisitorsDocument)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("expected %s, got %s", body, got)
	}
}

func TestNewObjectStoreRequiresEndpoint(t *testing.T) {
	if _, err := NewObjectStore(context.Background(), ObjectStoreOptions{Bucket: "b"}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}
