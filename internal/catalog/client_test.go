package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type wireClue struct {
	ID       string `json:"id"`
	Answer   string `json:"answer"`
	Question string `json:"question"`
}

type wireCategory struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Clues []wireClue `json:"clues"`
}

func wireCat(title string, clues int) wireCategory {
	cat := wireCategory{ID: uuid.New().String(), Title: title}
	for i := 0; i < clues; i++ {
		cat.Clues = append(cat.Clues, wireClue{
			ID:       uuid.New().String(),
			Answer:   fmt.Sprintf("%s answer %d", title, i),
			Question: fmt.Sprintf("%s question %d", title, i),
		})
	}
	return cat
}

func TestFetchRandomCategories(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		json.NewEncoder(w).Encode([]wireCategory{wireCat("history", 5), wireCat("science", 5)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	cats, err := c.FetchRandomCategories(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("FetchRandomCategories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0].Title != "history" || len(cats[0].Clues) != 5 {
		t.Fatalf("category not converted: %+v", cats[0])
	}
	if cats[0].Clues[0].Answer != "history answer 0" {
		t.Fatalf("clue fields not carried over: %+v", cats[0].Clues[0])
	}
	if !strings.Contains(gotPath, "count=2") || !strings.Contains(gotPath, "clues=5") {
		t.Fatalf("request missing board shape params: %s", gotPath)
	}
}

func TestFetchRefetchesShortCategories(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// One usable category, one too short to fill a column.
			json.NewEncoder(w).Encode([]wireCategory{wireCat("history", 5), wireCat("stubs", 2)})
			return
		}
		json.NewEncoder(w).Encode([]wireCategory{wireCat("science", 5)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	cats, err := c.FetchRandomCategories(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("FetchRandomCategories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories after refetch, got %d", len(cats))
	}
	if calls != 2 {
		t.Fatalf("expected a second fetch for the dropped category, got %d calls", calls)
	}
}

func TestFetchGivesUpWhenCatalogStaysShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]wireCategory{wireCat("stubs", 1)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.FetchRandomCategories(context.Background(), 2, 5); err == nil {
		t.Fatalf("expected an error when the catalog never fills the board")
	}
}

func TestFetchPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "catalog down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.FetchRandomCategories(context.Background(), 1, 1); err == nil {
		t.Fatalf("expected 5xx to surface as an error")
	}
}

func TestClientSendsConfiguredHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]wireCategory{wireCat("history", 1)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetHeader("Authorization", "Bearer token")
	if _, err := c.FetchRandomCategories(context.Background(), 1, 1); err != nil {
		t.Fatalf("FetchRandomCategories: %v", err)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("header not sent, got %q", gotAuth)
	}
}
