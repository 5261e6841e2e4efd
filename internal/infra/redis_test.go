package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
}

func TestNewClientsRequireURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "", "paycore"); err == nil {
		t.Fatalf("expected error for empty redis url")
	}
	if _, err := NewPostgresPool(context.Background(), "", "paycore"); err == nil {
		t.Fatalf("expected error for empty database url")
	}
	if _, err := NewPostgresPool(context.Background(), "://bad", "paycore"); err == nil {
		t.Fatalf("expected error for malformed database url")
	}
}
