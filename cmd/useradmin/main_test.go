package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kjstillabower/cityweather/internal/store"
)

func dbArgs(t *testing.T) []string {
	t.Helper()
	return []string{"-driver", "sqlite", "-dsn", filepath.Join(t.TempDir(), "users.db")}
}

func TestRun_CreateThenDelete(t *testing.T) {
	ctx := context.Background()
	db := dbArgs(t)
	var out bytes.Buffer

	create := append([]string{"create"}, db...)
	create = append(create, "-username", "alice", "-email", "alice@example.com", "-password", "secret1")
	if err := run(ctx, create, &out, zap.NewNop()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out.String(), "created user alice") {
		t.Errorf("output = %q", out.String())
	}

	if err := run(ctx, create, &out, zap.NewNop()); !errors.Is(err, store.ErrDuplicateUser) {
		t.Errorf("second create err = %v, want ErrDuplicateUser", err)
	}

	del := append([]string{"delete"}, db...)
	del = append(del, "-username", "alice")
	if err := run(ctx, del, &out, zap.NewNop()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := run(ctx, del, &out, zap.NewNop()); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("second delete err = %v, want ErrUserNotFound", err)
	}
}

func TestRun_PasswordFromEnv(t *testing.T) {
	t.Setenv("USERADMIN_PASSWORD", "fromenv1")
	args := append([]string{"create"}, dbArgs(t)...)
	args = append(args, "-username", "bob", "-email", "bob@example.com")
	if err := run(context.Background(), args, &bytes.Buffer{}, zap.NewNop()); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestRun_WeakPassword(t *testing.T) {
	t.Setenv("USERADMIN_PASSWORD", "")
	args := append([]string{"create"}, dbArgs(t)...)
	args = append(args, "-username", "carol", "-email", "carol@example.com", "-password", "123")
	if err := run(context.Background(), args, &bytes.Buffer{}, zap.NewNop()); !errors.Is(err, store.ErrWeakPassword) {
		t.Errorf("err = %v, want ErrWeakPassword", err)
	}
}

func TestRun_Usage(t *testing.T) {
	tests := [][]string{nil, {"rename"}}
	for _, args := range tests {
		if err := run(context.Background(), args, &bytes.Buffer{}, zap.NewNop()); !errors.Is(err, errUsage) {
			t.Errorf("run(%v) err = %v, want errUsage", args, err)
		}
	}
	if err := run(context.Background(), []string{"delete"}, &bytes.Buffer{}, zap.NewNop()); err == nil {
		t.Error("delete without -username succeeded")
	}
}
