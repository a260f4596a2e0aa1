package services

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
)

func TestListingRepositoryExists(t *testing.T) {
	countPattern := regexp.MustCompile("SELECT count\\(\\*\\) FROM .*listings.*")

	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: countPattern,
			args:    []driver.Value{"alpha cafe|1 main st"},
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindQuery,
			pattern: countPattern,
			args:    []driver.Value{"beta bistro|2 side st"},
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	repo := NewListingRepository(gormDB)

	exists, err := repo.Exists(context.Background(), "alpha cafe|1 main st")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected key to exist")
	}

	exists, err = repo.Exists(context.Background(), "beta bistro|2 side st")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatalf("expected key to be absent")
	}

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestListingRepositoryEnsureCategoryEmptyNameIsNoop(t *testing.T) {
	gormDB, state, cleanup := newScriptedGormDB(t, nil)
	defer cleanup()

	repo := NewListingRepository(gormDB)
	if err := repo.EnsureCategory(context.Background(), ""); err != nil {
		t.Fatalf("ensure empty category: %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}
