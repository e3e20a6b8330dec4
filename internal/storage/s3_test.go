package storage

import (
	"errors"
	"testing"
)

func TestS3ObjectKey(t *testing.T) {
	s := &S3{Bucket: "b", Prefix: "exports"}
	got, err := s.objectKey("statements/2026-09/./p1.csv")
	if err != nil {
		t.Fatalf("objectKey: %v", err)
	}
	if got != "exports/statements/2026-09/p1.csv" {
		t.Fatalf("key = %q", got)
	}

	bare := &S3{Bucket: "b"}
	if got, _ := bare.objectKey("a.csv"); got != "a.csv" {
		t.Fatalf("key without prefix = %q", got)
	}

	if _, err := s.objectKey("../escape.csv"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
}
