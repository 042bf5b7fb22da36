package redmine

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func TestListProjects_IncludeArchived(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects.json", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "*" {
			t.Errorf("status = %q, want *", q.Get("status"))
		}
		if q.Get("limit") != "25" || q.Get("offset") != "0" {
			t.Errorf("pagination = %q/%q", q.Get("limit"), q.Get("offset"))
		}
		_, _ = w.Write([]byte(`{"projects": [{"id": 1, "name": "Demo"}], "total_count": 1, "offset": 0, "limit": 25}`))
	})

	client := newTestClient(t, mux)
	page, err := client.ListProjects(context.Background(), ProjectListOptions{IncludeArchived: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0]["name"] != "Demo" {
		t.Errorf("items = %v", page.Items)
	}
	if page.TotalCount != 1 || page.Limit != 25 {
		t.Errorf("counters = %+v", page)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/missing.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := newTestClient(t, mux)
	res, err := client.GetProject(context.Background(), "missing", nil)
	if err != nil {
		t.Fatalf("404 should not be an error, got %v", err)
	}
	if res.Found {
		t.Error("expected Found = false")
	}
}

func TestGetProject_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/demo.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := newTestClient(t, mux)
	_, err := client.GetProject(context.Background(), "demo", nil)
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %v", err)
	}
}

func TestGetProject_Include(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/demo.json", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("include"); got != "trackers,enabled_modules" {
			t.Errorf("include = %q", got)
		}
		_, _ = w.Write([]byte(`{"project": {"id": 1, "identifier": "demo"}}`))
	})

	client := newTestClient(t, mux)
	res, err := client.GetProject(context.Background(), "demo", []string{"trackers", "enabled_modules"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found || res.Value["identifier"] != "demo" {
		t.Errorf("lookup = %+v", res)
	}
}

func TestArchiveProject(t *testing.T) {
	var called bool
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /projects/demo/archive.json", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	if err := client.ArchiveProject(context.Background(), "demo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("archive endpoint not called")
	}
}

// ---------------------------------------------------------------------------
// Issues
// ---------------------------------------------------------------------------

func TestCreateIssue_WrapsBody(t *testing.T) {
	var posts int
	mux := http.NewServeMux()
	mux.HandleFunc("POST /issues.json", func(w http.ResponseWriter, r *http.Request) {
		posts++
		if got := readBody(t, r); got != `{"issue":{"project_id":1,"subject":"t"}}` {
			t.Errorf("body = %s", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"issue": {"id": 42, "subject": "t"}}`))
	})

	client := newTestClient(t, mux)
	issue, err := client.CreateIssue(context.Background(), map[string]any{"project_id": 1, "subject": "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issue["id"] != float64(42) {
		t.Errorf("created issue = %v", issue)
	}
	if posts != 1 {
		t.Errorf("expected exactly one POST, got %d", posts)
	}
}

func TestListIssues_Filters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues.json", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		want := map[string]string{
			"project_id": "demo",
			"status_id":  "open",
			"created_on": "><2024-01-01|2024-01-31",
			"subject":    "~login",
			"include":    "journals,watchers",
			"limit":      "10",
			"offset":     "20",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}
		for _, absent := range []string{"assigned_to_id", "tracker_id", "priority_id", "updated_on", "sort"} {
			if q.Has(absent) {
				t.Errorf("%s should be omitted", absent)
			}
		}
		_, _ = w.Write([]byte(`{"issues": [{"id": 1}, {"id": 2}], "total_count": 40, "offset": 20, "limit": 10}`))
	})

	client := newTestClient(t, mux)
	page, err := client.ListIssues(context.Background(), IssueFilter{
		ListOptions: ListOptions{Limit: 10, Offset: 20},
		ProjectID:   "demo",
		StatusID:    "open",
		CreatedOn:   DateFilter("2024-01-01", "2024-01-31"),
		Subject:     "login",
		Include:     []string{"journals", "watchers"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 || page.TotalCount != 40 || page.Offset != 20 {
		t.Errorf("page = %+v", page)
	}
}

func TestListIssues_Repeatable(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues.json", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"issues": [{"id": 1, "subject": "a"}, {"id": 2, "subject": "b"}], "total_count": 2, "offset": 0, "limit": 25}`))
	})

	client := newTestClient(t, mux)
	filter := IssueFilter{
		ListOptions:  ListOptions{Limit: 25},
		ProjectID:    "demo",
		StatusID:     "*",
		AssignedToID: "me",
		Sort:         "updated_on:desc",
		Include:      []string{"watchers", "journals"},
	}

	var results [][]byte
	for range 2 {
		page, err := client.ListIssues(context.Background(), filter)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		raw, err := json.Marshal(page)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		results = append(results, raw)
	}

	if len(queries) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(queries))
	}
	if queries[0] != queries[1] {
		t.Errorf("query strings differ:\n%s\n%s", queries[0], queries[1])
	}
	if string(results[0]) != string(results[1]) {
		t.Errorf("results differ:\n%s\n%s", results[0], results[1])
	}
}

func TestListIssues_MissingKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_count": 0}`))
	})

	client := newTestClient(t, mux)
	page, err := client.ListIssues(context.Background(), IssueFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("expected empty, non-nil items, got %#v", page.Items)
	}
}

func TestRemoveWatcher_VerifiesPath(t *testing.T) {
	var called bool
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /issues/10/watchers/5.json", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	if err := client.RemoveWatcher(context.Background(), 10, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("watcher endpoint not called")
	}
}

func TestAddWatcher_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /issues/999/watchers.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := newTestClient(t, mux)
	err := client.AddWatcher(context.Background(), 999, 5)
	if !IsNotFound(err) {
		t.Errorf("writes report 404 as an error, got %v", err)
	}
}

func TestListIssueJournals(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues/7.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("include") != "journals" {
			t.Errorf("include = %q", r.URL.Query().Get("include"))
		}
		_, _ = w.Write([]byte(`{"issue": {"id": 7, "journals": [{"id": 1, "notes": "first"}, {"id": 2, "notes": ""}]}}`))
	})

	client := newTestClient(t, mux)
	res, journals, err := client.ListIssueJournals(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found || len(journals) != 2 || journals[0]["notes"] != "first" {
		t.Errorf("journals = %v", journals)
	}
}

// ---------------------------------------------------------------------------
// Time entries
// ---------------------------------------------------------------------------

func TestUpdateTimeEntry_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /time_entries/1.json", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]map[string]any
		if err := json.Unmarshal([]byte(readBody(t, r)), &req); err != nil {
			t.Fatalf("failed to parse request body: %v", err)
		}
		te, ok := req["time_entry"]
		if !ok {
			t.Fatal("request body missing 'time_entry' key")
		}
		if hours, ok := te["hours"].(float64); !ok || hours != 2.5 {
			t.Errorf("expected hours=2.5, got %v", te["hours"])
		}
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	if err := client.UpdateTimeEntry(context.Background(), 1, map[string]any{"hours": 2.5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateTimeEntry_InvalidParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /time_entries/1.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":["Hours is invalid"]}`))
	})

	client := newTestClient(t, mux)
	err := client.UpdateTimeEntry(context.Background(), 1, map[string]any{"hours": -1})
	if err == nil || StatusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestListTimeEntries_Range(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /time_entries.json", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != "2024-03-04" || q.Get("to") != "2024-03-10" || q.Get("user_id") != "me" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"time_entries": [{"id": 1, "hours": 1.5}], "total_count": 1}`))
	})

	client := newTestClient(t, mux)
	page, err := client.ListTimeEntries(context.Background(), TimeEntryFilter{UserID: "me", From: "2024-03-04", To: "2024-03-10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalCount != 1 {
		t.Errorf("total = %d", page.TotalCount)
	}
}

// ---------------------------------------------------------------------------
// Wiki, memberships, categories, search
// ---------------------------------------------------------------------------

func TestPutWikiPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /projects/demo/wiki/NewPage.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"wiki_page": {"title": "NewPage", "version": 1}}`))
	})
	mux.HandleFunc("PUT /projects/demo/wiki/Existing.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)

	created, err := client.PutWikiPage(context.Background(), "demo", "NewPage", map[string]any{"text": "h1. Hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created["title"] != "NewPage" {
		t.Errorf("created = %v", created)
	}

	updated, err := client.PutWikiPage(context.Background(), "demo", "Existing", map[string]any{"text": "h1. Hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated) != 0 {
		t.Errorf("update should return an empty map, got %v", updated)
	}
}

func TestGetWikiPage_Version(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/demo/wiki/Start/3.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"wiki_page": {"title": "Start", "version": 3}}`))
	})

	client := newTestClient(t, mux)
	res, err := client.GetWikiPage(context.Background(), "demo", "Start", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found || res.Value["version"] != float64(3) {
		t.Errorf("lookup = %+v", res)
	}
}

func TestUpdateMembership_Body(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /memberships/4.json", func(w http.ResponseWriter, r *http.Request) {
		if got := readBody(t, r); got != `{"membership":{"role_ids":[3,4]}}` {
			t.Errorf("body = %s", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	if err := client.UpdateMembership(context.Background(), 4, []int{3, 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteIssueCategory_Reassign(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /issue_categories/2.json", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("reassign_to_id"); got != "9" {
			t.Errorf("reassign_to_id = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mux)
	if err := client.DeleteIssueCategory(context.Background(), 2, 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_Project(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/demo/search.json", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "crash" || q.Get("titles_only") != "1" || q.Has("open_issues") {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"results": [{"id": 3, "title": "Bug #3: crash", "type": "issue"}], "total_count": 1}`))
	})

	client := newTestClient(t, mux)
	page, err := client.Search(context.Background(), SearchOptions{Query: "crash", ProjectID: "demo", TitlesOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0]["type"] != "issue" {
		t.Errorf("results = %v", page.Items)
	}
}

func TestListEnumerations_Unknown(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))

	if _, err := client.ListEnumerations(context.Background(), "colors"); err == nil {
		t.Fatal("expected error for unknown enumeration")
	}
}

func TestGetCurrentUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/current.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user": {"id": 1, "login": "jsmith"}}`))
	})

	client := newTestClient(t, mux)
	user, err := client.GetCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user["login"] != "jsmith" {
		t.Errorf("user = %v", user)
	}
}
