package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/odvcencio/refledger/internal/api"
	"github.com/odvcencio/refledger/internal/auth"
	"github.com/odvcencio/refledger/internal/core"
	"github.com/odvcencio/refledger/internal/database"
	"github.com/odvcencio/refledger/internal/models"
	"github.com/odvcencio/refledger/internal/storage"
)

func setupTestServer(t *testing.T) (*api.Server, database.DB) {
	t.Helper()
	db, err := database.OpenSQLite(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return newServerOverDB(t, db), db
}

func newServerOverDB(t *testing.T, db database.DB) *api.Server {
	t.Helper()

	// Synchronous sink keeps notifications immediately visible to the
	// listing endpoint; production uses the jobs dispatcher instead.
	sink := core.SinkFunc(func(n models.Notification) {
		db.AppendNotification(context.Background(), &n)
	})

	authSvc := auth.NewService("test-secret", 24*time.Hour)
	hub := core.NewHub(storage.MemoryFactory{}, sink, db)
	if err := hub.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return api.NewServer(db, authSvc, hub)
}

func registerUser(t *testing.T, url, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"secret123"}`, username, username)
	resp, err := http.Post(url+"/api/v1/auth/register", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", username, resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Token == "" {
		t.Fatal("expected token in register response")
	}
	return out.Token
}

func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func hexOID(b byte) string {
	var o models.OID
	o[0] = b
	return o.String()
}

func createLedger(t *testing.T, url, token, name string) {
	t.Helper()
	resp := doJSON(t, "POST", url+"/api/v1/ledgers", token, fmt.Sprintf(`{"name":%q}`, name))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create ledger: expected 201, got %d", resp.StatusCode)
	}
}

func pushBranch(t *testing.T, url, token, ledger, branch, parent, oid string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"branch":%q,"parent_oid":%q,"new_oid":%q,"packfile_key":"pk-%s","size":64}`,
		branch, parent, oid, oid[:8])
	return doJSON(t, "POST", url+"/api/v1/ledgers/"+ledger+"/push", token, body)
}

func TestRegisterAndLogin(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	registerUser(t, ts.URL, "alice")

	resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json",
		bytes.NewBufferString(`{"username":"alice","password":"secret123"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}

	resp2, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json",
		bytes.NewBufferString(`{"username":"alice","password":"wrong"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", resp2.StatusCode)
	}
}

func TestCreateAndGetLedger(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	token := registerUser(t, ts.URL, "alice")
	createLedger(t, ts.URL, token, "infra")

	// Duplicate name conflicts.
	resp := doJSON(t, "POST", ts.URL+"/api/v1/ledgers", token, `{"name":"infra"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", resp.StatusCode)
	}

	// Invalid name rejected.
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers", token, `{"name":"bad/name"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid name: expected 400, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra", "", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get ledger: expected 200, got %d", resp.StatusCode)
	}
	var got struct {
		Name        string `json:"name"`
		Owner       string `json:"owner"`
		BranchCount int    `json:"branch_count"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Name != "infra" || got.Owner != "alice" {
		t.Fatalf("unexpected ledger: %+v", got)
	}
	if got.BranchCount != 0 {
		t.Fatalf("branch count = %d, want 0", got.BranchCount)
	}

	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/missing", "", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing ledger: expected 404, got %d", resp.StatusCode)
	}
}

func TestPushChainAndQueries(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	token := registerUser(t, ts.URL, "alice")
	createLedger(t, ts.URL, token, "infra")

	resp := pushBranch(t, ts.URL, token, "infra", "main", "", hexOID(1))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("genesis push: expected 204, got %d", resp.StatusCode)
	}

	resp = pushBranch(t, ts.URL, token, "infra", "main", hexOID(1), hexOID(2))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("second push: expected 204, got %d", resp.StatusCode)
	}

	// Stale parent loses.
	resp = pushBranch(t, ts.URL, token, "infra", "main", hexOID(1), hexOID(3))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale push: expected 409, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/branches/main", "", "")
	var head struct {
		Head   string `json:"head"`
		Exists bool   `json:"exists"`
	}
	json.NewDecoder(resp.Body).Decode(&head)
	resp.Body.Close()
	if !head.Exists || head.Head != hexOID(2) {
		t.Fatalf("head = %+v, want exists with %s", head, hexOID(2))
	}

	// First branch became the default.
	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/default-branch", "", "")
	var def struct {
		Branch string `json:"branch"`
		Head   string `json:"head"`
	}
	json.NewDecoder(resp.Body).Decode(&def)
	resp.Body.Close()
	if def.Branch != "main" || def.Head != hexOID(2) {
		t.Fatalf("default = %+v", def)
	}

	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/branches/main/records", "", "")
	var recs struct {
		Records []struct {
			NewOID string `json:"new_oid"`
			Pusher string `json:"pusher"`
		} `json:"records"`
	}
	json.NewDecoder(resp.Body).Decode(&recs)
	resp.Body.Close()
	if len(recs.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(recs.Records))
	}
	if recs.Records[0].NewOID != hexOID(1) || recs.Records[1].NewOID != hexOID(2) {
		t.Fatalf("record order wrong: %+v", recs.Records)
	}
	if recs.Records[0].Pusher != "alice" {
		t.Fatalf("pusher = %q, want alice", recs.Records[0].Pusher)
	}
}

func TestPushRequiresCapability(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	alice := registerUser(t, ts.URL, "alice")
	bob := registerUser(t, ts.URL, "bob")
	createLedger(t, ts.URL, alice, "infra")

	resp := pushBranch(t, ts.URL, bob, "infra", "main", "", hexOID(1))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthorized push: expected 403, got %d", resp.StatusCode)
	}

	// Anonymous callers never reach the handler, and the refusal is JSON
	// like every other error response.
	resp = pushBranch(t, ts.URL, "", "infra", "main", "", hexOID(1))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous push: expected 401, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("anonymous push content type = %q, want application/json", ct)
	}

	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/pushers", alice, `{"username":"bob"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add pusher: expected 204, got %d", resp.StatusCode)
	}

	resp = pushBranch(t, ts.URL, bob, "infra", "main", "", hexOID(1))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("granted push: expected 204, got %d", resp.StatusCode)
	}

	// Pushers cannot grant.
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/pushers", bob, `{"username":"carol"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pusher granting: expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "DELETE", ts.URL+"/api/v1/ledgers/infra/pushers/bob", alice, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove pusher: expected 204, got %d", resp.StatusCode)
	}

	resp = pushBranch(t, ts.URL, bob, "infra", "main", hexOID(1), hexOID(2))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("revoked push: expected 403, got %d", resp.StatusCode)
	}
}

func TestForcePushScenarios(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	token := registerUser(t, ts.URL, "alice")
	createLedger(t, ts.URL, token, "infra")

	for i, parent := range []string{"", hexOID(1), hexOID(2)} {
		resp := pushBranch(t, ts.URL, token, "infra", "main", parent, hexOID(byte(i+1)))
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("push %d: got %d", i, resp.StatusCode)
		}
	}
	resp := pushBranch(t, ts.URL, token, "infra", "dev", "", hexOID(9))
	resp.Body.Close()

	// Partial truncate back past oid(2), replaying oid(7) on top of it.
	body := fmt.Sprintf(`{"branch":"main","new_oid":%q,"packfile_key":"pk-trunc","size":32,"parent_oid":%q,"parent_index":1}`,
		hexOID(7), hexOID(2))
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/force-push", token, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("truncate: expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/branches/main/records", "", "")
	var recs struct {
		Records []struct {
			NewOID string `json:"new_oid"`
		} `json:"records"`
	}
	json.NewDecoder(resp.Body).Decode(&recs)
	resp.Body.Close()
	if len(recs.Records) != 3 {
		t.Fatalf("records after truncate = %d, want 3", len(recs.Records))
	}
	if recs.Records[2].NewOID != hexOID(7) {
		t.Fatalf("tip record = %s, want %s", recs.Records[2].NewOID, hexOID(7))
	}

	// Anchor mismatch leaves no trace.
	body = fmt.Sprintf(`{"branch":"main","new_oid":%q,"packfile_key":"pk-bad","size":32,"parent_oid":%q,"parent_index":0}`,
		hexOID(8), hexOID(5))
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/force-push", token, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("anchor mismatch: expected 409, got %d", resp.StatusCode)
	}

	// Index past the logical end.
	body = fmt.Sprintf(`{"branch":"main","new_oid":%q,"packfile_key":"pk-bad","size":32,"parent_oid":%q,"parent_index":10}`,
		hexOID(8), hexOID(7))
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/force-push", token, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("index out of range: expected 400, got %d", resp.StatusCode)
	}

	// Full replace: zero parent oid, nonzero new oid.
	body = fmt.Sprintf(`{"branch":"dev","new_oid":%q,"packfile_key":"pk-replace","size":32,"parent_index":0}`, hexOID(10))
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/force-push", token, body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("replace: expected 204, got %d", resp.StatusCode)
	}

	// Deleting the default branch is refused; deleting dev works.
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/force-push", token,
		`{"branch":"main","new_oid":"","packfile_key":"","size":0,"parent_index":0}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete default: expected 409, got %d", resp.StatusCode)
	}
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/force-push", token,
		`{"branch":"dev","new_oid":"","packfile_key":"","size":0,"parent_index":0}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete dev: expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/branches/dev", "", "")
	var head struct {
		Exists bool `json:"exists"`
	}
	json.NewDecoder(resp.Body).Decode(&head)
	resp.Body.Close()
	if head.Exists {
		t.Fatal("dev should not exist after delete")
	}
}

func TestBranchListingPagination(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	token := registerUser(t, ts.URL, "alice")
	createLedger(t, ts.URL, token, "infra")

	for i := 1; i <= 5; i++ {
		resp := pushBranch(t, ts.URL, token, "infra", fmt.Sprintf("b%d", i), "", hexOID(byte(i)))
		resp.Body.Close()
	}

	resp := doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/branches?start=2&limit=2", "", "")
	var out struct {
		Branches []struct {
			Name string `json:"name"`
		} `json:"branches"`
		Total int `json:"total"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if out.Total != 5 {
		t.Fatalf("total = %d, want 5", out.Total)
	}
	if len(out.Branches) != 2 {
		t.Fatalf("page = %d entries, want 2", len(out.Branches))
	}

	// Window past the end is empty, not an error.
	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/branches?start=50&limit=10", "", "")
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(out.Branches) != 0 {
		t.Fatalf("out-of-range window: status %d, %d entries", resp.StatusCode, len(out.Branches))
	}
}

func TestSetDefaultBranch(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	alice := registerUser(t, ts.URL, "alice")
	bob := registerUser(t, ts.URL, "bob")
	createLedger(t, ts.URL, alice, "infra")

	pushBranch(t, ts.URL, alice, "infra", "main", "", hexOID(1)).Body.Close()
	pushBranch(t, ts.URL, alice, "infra", "stable", "", hexOID(2)).Body.Close()

	resp := doJSON(t, "PUT", ts.URL+"/api/v1/ledgers/infra/default-branch", bob, `{"branch":"stable"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin set default: expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "PUT", ts.URL+"/api/v1/ledgers/infra/default-branch", alice, `{"branch":"stable"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set default: expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "PUT", ts.URL+"/api/v1/ledgers/infra/default-branch", alice, `{"branch":"ghost"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("set missing default: expected 404, got %d", resp.StatusCode)
	}

	// The new default is persisted on the metadata row.
	resp = doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra", "", "")
	var got struct {
		DefaultBranch string `json:"default_branch"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got.DefaultBranch != "stable" {
		t.Fatalf("persisted default = %q, want stable", got.DefaultBranch)
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	token := registerUser(t, ts.URL, "alice")
	createLedger(t, ts.URL, token, "infra")

	pushBranch(t, ts.URL, token, "infra", "main", "", hexOID(1)).Body.Close()
	pushBranch(t, ts.URL, token, "infra", "main", hexOID(1), hexOID(2)).Body.Close()

	resp := doJSON(t, "GET", ts.URL+"/api/v1/ledgers/infra/notifications", "", "")
	var out struct {
		Notifications []struct {
			ID     int64  `json:"id"`
			Kind   string `json:"kind"`
			Branch string `json:"branch"`
		} `json:"notifications"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if len(out.Notifications) != 2 {
		t.Fatalf("notifications = %d, want 2", len(out.Notifications))
	}
	if out.Notifications[0].Kind != string(models.NotifyRefUpdated) {
		t.Fatalf("kind = %q", out.Notifications[0].Kind)
	}

	// Cursor resumes after the given id.
	cursor := out.Notifications[0].ID
	resp = doJSON(t, "GET", fmt.Sprintf("%s/api/v1/ledgers/infra/notifications?after=%d", ts.URL, cursor), "", "")
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if len(out.Notifications) != 1 {
		t.Fatalf("after cursor = %d entries, want 1", len(out.Notifications))
	}
}

func TestStorageForwardGating(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	token := registerUser(t, ts.URL, "alice")
	createLedger(t, ts.URL, token, "infra")

	// Mutating identifier without the pusher capability.
	write := `{"key":"pk-1","data":"aGVsbG8=","offsets":[0],"lengths":[5]}`
	resp := doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/storage/bulk-write", "", write)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("anonymous bulk-write: expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/storage/bulk-write", token, write)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner bulk-write: expected 200, got %d", resp.StatusCode)
	}

	// Reads pass unchecked even for anonymous callers.
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/storage/read", "", `{"key":"pk-1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous read: expected 200, got %d", resp.StatusCode)
	}
	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if buf.String() != "hello" {
		t.Fatalf("read body = %q, want hello", buf.String())
	}

	// Unknown identifiers go to the collaborator escape hatch.
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/storage/ping", "", `probe`)
	buf.Reset()
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || buf.String() != "probe" {
		t.Fatalf("ping: status %d body %q", resp.StatusCode, buf.String())
	}

	// Collaborator failures are relayed, not masked.
	resp = doJSON(t, "POST", ts.URL+"/api/v1/ledgers/infra/storage/read", "", `{"key":"absent"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("missing blob: expected 502, got %d", resp.StatusCode)
	}
}

func TestLedgersSurviveRestart(t *testing.T) {
	db, err := database.OpenSQLite(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	ts := httptest.NewServer(newServerOverDB(t, db))
	token := registerUser(t, ts.URL, "alice")
	createLedger(t, ts.URL, token, "infra")
	ts.Close()

	// Fresh hub over the same database, as after a process restart.
	ts2 := httptest.NewServer(newServerOverDB(t, db))
	defer ts2.Close()

	resp := doJSON(t, "GET", ts2.URL+"/api/v1/ledgers/infra", "", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get after restart: expected 200, got %d", resp.StatusCode)
	}

	// The owner can push; branch state starts over.
	resp = pushBranch(t, ts2.URL, token, "infra", "main", "", hexOID(1))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("push after restart: expected 204, got %d", resp.StatusCode)
	}

	// The restored name is still taken.
	resp = doJSON(t, "POST", ts2.URL+"/api/v1/ledgers", token, `{"name":"infra"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("recreate after restart: expected 409, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(server)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", resp.StatusCode)
	}
}
