package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atlekbai/crm_backoffice/internal/entity"
	"github.com/atlekbai/crm_backoffice/internal/view"
)

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func TestUsersAdd(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "views.db")
	t.Setenv("CRM_STORE_DRIVER", "sqlite")
	t.Setenv("CRM_STORE_SQLITE_PATH", dbPath)

	id := uuid.New()
	err := runRoot(t, "users", "add", id.String(),
		"--first-name", "Dana", "--last-name", "Cohen", "--email", "dana@example.com")
	if err != nil {
		t.Fatal(err)
	}

	store, err := view.OpenSQLStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	now := time.Now().UTC()
	v, err := store.Create(context.Background(), &view.View{
		ID:        uuid.New(),
		Name:      "Mine",
		Entity:    entity.Meetings,
		Columns:   []string{"topic"},
		CreatedBy: id,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.Creator == nil || v.Creator.Name != "Dana Cohen" || v.Creator.Email != "dana@example.com" {
		t.Fatalf("creator = %+v", v.Creator)
	}
}

func TestUsersAddRejects(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CRM_STORE_DRIVER", "postgres")
	if err := runRoot(t, "users", "add", uuid.NewString()); err == nil {
		t.Fatal("postgres driver accepted")
	}

	t.Setenv("CRM_STORE_DRIVER", "sqlite")
	t.Setenv("CRM_STORE_SQLITE_PATH", filepath.Join(t.TempDir(), "views.db"))
	if err := runRoot(t, "users", "add", "not-a-uuid"); err == nil {
		t.Fatal("bad id accepted")
	}
}
