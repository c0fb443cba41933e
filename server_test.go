package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/models/reports"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type fakeStore struct {
	mu      sync.Mutex
	puts    map[string]string
	deleted []string
}

func (s *fakeStore) Put(_ context.Context, objectKey string, _ []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.puts == nil {
		s.puts = map[string]string{}
	}
	s.puts[objectKey] = contentType
	return "https://storage.googleapis.com/gem-bucket/" + objectKey, nil
}

func (s *fakeStore) Delete(_ context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, objectKey)
	return nil
}

type fakeFetcher struct {
	rate decimal.Decimal
	ok   bool
}

func (f fakeFetcher) FetchUSDToLKR(context.Context) (decimal.Decimal, bool) {
	return f.rate, f.ok
}

type envelope[T any] struct {
	Data   T                 `json:"data"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *fakeStore
}

func newTestServer(t *testing.T, fetcher models.RateFetcher) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := config.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.UseDB(db)
	config.UseRedis(nil)
	if err := models.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ready.Store(true)
	t.Cleanup(func() { ready.Store(false) })

	store := &fakeStore{}
	return &testServer{t: t, router: newRouter(store, fetcher), store: store}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("token", token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

// signUpAndIn returns a session token for a fresh profile.
func (s *testServer) signUpAndIn(email string) models.LoginInfo {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"email": email, "password": "secret-pw", "full_name": "Dulip",
	})
	if w.Code != http.StatusCreated {
		s.t.Fatalf("sign-up %s: %d %s", email, w.Code, w.Body.String())
	}
	return s.signIn(email)
}

func (s *testServer) signIn(email string) models.LoginInfo {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email": email, "password": "secret-pw",
	})
	if w.Code != http.StatusOK {
		s.t.Fatalf("sign-in %s: %d %s", email, w.Code, w.Body.String())
	}
	return decode[models.LoginInfo](s.t, w).Data
}

func (s *testServer) viewerToken(email string) string {
	s.t.Helper()
	_, err := models.CreateProfileWithRole(context.Background(), &models.NewProfile{
		Email: email, Password: "secret-pw",
	}, models.UserRoleViewer)
	if err != nil {
		s.t.Fatalf("create viewer: %v", err)
	}
	return s.signIn(email).Token
}

func TestReadinessGate(t *testing.T) {
	s := newTestServer(t, fakeFetcher{})

	ready.Store(false)
	if w := s.do(http.MethodGet, "/api/inventory", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/healthz", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected healthz 204, got %d", w.Code)
	}
	ready.Store(true)
	if w := s.do(http.MethodGet, "/api/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	t.Setenv("OPEN_SIGN_UP", "")
	s := newTestServer(t, fakeFetcher{})

	if w := s.do(http.MethodGet, "/api/inventory", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: expected 401, got %d", w.Code)
	}

	login := s.signUpAndIn("owner@gems.lk")
	if login.Profile.Role != models.UserRoleAdmin {
		t.Fatalf("first profile should be admin, got %s", login.Profile.Role)
	}

	w := s.do(http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"email": "late@gems.lk", "password": "secret-pw",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("closed sign-up: expected 403, got %d", w.Code)
	}

	w = s.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email": "owner@gems.lk", "password": "wrong-pw",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	if me := decode[models.Profile](t, w).Data; me.Email != "owner@gems.lk" {
		t.Fatalf("me email = %q", me.Email)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Jwt)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer me: %d %s", rec.Code, rec.Body.String())
	}

	if w := s.do(http.MethodPost, "/api/auth/sign-out", login.Token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("sign-out: %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/auth/me", login.Token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("after sign-out: expected 401, got %d", w.Code)
	}

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("jwt after sign-out: expected 401, got %d", rec.Code)
	}
}

func TestSetRoleRevokesSessions(t *testing.T) {
	s := newTestServer(t, fakeFetcher{})
	admin := s.signUpAndIn("owner@gems.lk").Token
	viewer := s.viewerToken("partner@gems.lk")

	w := s.do(http.MethodGet, "/api/profiles", viewer, nil)
	profiles := decode[[]models.Profile](t, w).Data
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	var partnerId string
	for _, p := range profiles {
		if p.Email == "partner@gems.lk" {
			partnerId = p.ID
		}
	}

	if w := s.do(http.MethodPut, "/api/profiles/"+partnerId+"/role", viewer, map[string]string{"role": "admin"}); w.Code != http.StatusForbidden {
		t.Fatalf("viewer promoting: expected 403, got %d", w.Code)
	}
	if w := s.do(http.MethodPut, "/api/profiles/"+partnerId+"/role", admin, map[string]string{"role": "admin"}); w.Code != http.StatusOK {
		t.Fatalf("set role: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, "/api/auth/me", viewer, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("old session should be revoked, got %d", w.Code)
	}
	if s.signIn("partner@gems.lk").Profile.Role != models.UserRoleAdmin {
		t.Fatalf("new session should carry the admin role")
	}
}

func TestInventoryLifecycle(t *testing.T) {
	t.Setenv("GCS_URL", "storage.googleapis.com")
	t.Setenv("GCS_BUCKET", "gem-bucket")
	s := newTestServer(t, fakeFetcher{})
	admin := s.signUpAndIn("owner@gems.lk").Token
	viewer := s.viewerToken("partner@gems.lk")

	form := map[string]any{
		"gem_type":     "ruby",
		"weight_ct":    "5",
		"buying_price": "2,000",
		"image_urls":   []string{"https://storage.googleapis.com/gem-bucket/gems/a.png"},
	}
	if w := s.do(http.MethodPost, "/api/inventory", viewer, form); w.Code != http.StatusForbidden {
		t.Fatalf("viewer create: expected 403, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/inventory", admin, map[string]any{"gem_type": "Ruby"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing weight: expected 400, got %d", w.Code)
	} else if env := decode[any](t, w); env.Fields["weight_ct"] == "" {
		t.Fatalf("expected weight_ct field error, got %v", env.Fields)
	}

	w := s.do(http.MethodPost, "/api/inventory", admin, form)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	item := decode[models.InventoryItem](t, w).Data
	if item.GemType != "Ruby" || item.LotNumber != 1 || item.Revision != 1 {
		t.Fatalf("unexpected item %+v", item)
	}
	if !item.UsdRate.Equal(decimal.NewFromInt(293)) {
		t.Fatalf("empty usd_rate should take the default, got %s", item.UsdRate)
	}

	form["note"] = ""
	form["buying_price"] = "2500"
	if w := s.do(http.MethodPut, "/api/inventory/"+item.ID, admin, form); w.Code != http.StatusBadRequest {
		t.Fatalf("update without note: expected 400, got %d", w.Code)
	}
	form["note"] = "renegotiated"
	form["revision"] = 1
	w = s.do(http.MethodPut, "/api/inventory/"+item.ID, admin, form)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPut, "/api/inventory/"+item.ID, admin, form); w.Code != http.StatusConflict {
		t.Fatalf("stale revision: expected 409, got %d", w.Code)
	}

	if w := s.do(http.MethodPost, "/api/inventory/"+item.ID+"/sold", admin, nil); w.Code != http.StatusOK {
		t.Fatalf("sold: %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/inventory/"+item.ID+"/logs", viewer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logs: %d %s", w.Code, w.Body.String())
	}
	logs := decode[[]models.ActivityLog](t, w).Data
	// create, buying_price, status
	if len(logs) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(logs))
	}
	if w := s.do(http.MethodGet, "/api/inventory/missing/logs", viewer, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown gem logs: expected 404, got %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/inventory?q=L1", viewer, nil)
	if got := decode[[]models.InventoryItem](t, w).Data; len(got) != 1 {
		t.Fatalf("search L1: expected 1 item, got %d", len(got))
	}
	w = s.do(http.MethodGet, "/api/inventory?status=In+Stock", viewer, nil)
	if got := decode[[]models.InventoryItem](t, w).Data; len(got) != 0 {
		t.Fatalf("sold gem should not be in stock, got %d", len(got))
	}

	w = s.do(http.MethodGet, "/api/inventory/"+item.ID+"/edit", viewer, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "display_val_per_ct_lkr") {
		t.Fatalf("edit view: %d %s", w.Code, w.Body.String())
	}

	if w := s.do(http.MethodDelete, "/api/inventory/"+item.ID, admin, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	want := []string{"gems/a.png", "gems/thumbnails/a.png"}
	if strings.Join(s.store.deleted, ",") != strings.Join(want, ",") {
		t.Fatalf("deleted objects = %v, want %v", s.store.deleted, want)
	}
	if w := s.do(http.MethodGet, "/api/inventory/"+item.ID, viewer, nil); w.Code != http.StatusNotFound {
		t.Fatalf("deleted item: expected 404, got %d", w.Code)
	}
}

func TestExportInventory(t *testing.T) {
	s := newTestServer(t, fakeFetcher{})
	admin := s.signUpAndIn("owner@gems.lk").Token
	s.do(http.MethodPost, "/api/inventory", admin, map[string]any{"weight_ct": "1.5"})

	w := s.do(http.MethodGet, "/api/inventory/export", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Gem_Inventory_") || !strings.Contains(cd, ".xlsx") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	// xlsx is a zip archive
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Fatalf("body is not an xlsx archive")
	}
}

func exportedGemTypes(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(reports.InventorySheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	var gemTypes []string
	for _, row := range rows[1:] {
		gemTypes = append(gemTypes, row[0])
	}
	return gemTypes
}

func TestExportInventory_FollowsListFilters(t *testing.T) {
	s := newTestServer(t, fakeFetcher{})
	admin := s.signUpAndIn("owner@gems.lk").Token
	var geudaId string
	for _, gemType := range []string{"Ruby", "Blue Sapphire", "Geuda"} {
		w := s.do(http.MethodPost, "/api/inventory", admin, map[string]any{"gem_type": gemType, "weight_ct": "1"})
		if w.Code != http.StatusCreated {
			t.Fatalf("create %s: %d %s", gemType, w.Code, w.Body.String())
		}
		geudaId = decode[models.InventoryItem](t, w).Data.ID
	}
	if w := s.do(http.MethodPost, "/api/inventory/"+geudaId+"/sold", admin, nil); w.Code != http.StatusOK {
		t.Fatalf("sold: %d %s", w.Code, w.Body.String())
	}

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"Geuda", "Blue Sapphire", "Ruby"}},
		{"?q=sapphire", []string{"Blue Sapphire"}},
		{"?status=Sold", []string{"Geuda"}},
		{"?status=Sold&q=ruby", nil},
	}
	for _, tc := range cases {
		got := exportedGemTypes(t, s.do(http.MethodGet, "/api/inventory/export"+tc.query, admin, nil))
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("export%s: expected %v, got %v", tc.query, tc.want, got)
		}
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		for y := 0; y < 300; y++ {
			img.Set(x, y, color.RGBA{R: 15, G: 82, B: 186, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, filename string, data []byte, token string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("token", token)
	return req
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t, fakeFetcher{})
	admin := s.signUpAndIn("owner@gems.lk").Token

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "stone.PNG", pngBytes(t), admin))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	res := decode[uploadResponse](t, w).Data
	if !strings.HasPrefix(res.ObjectKey, "gems/") || !strings.HasSuffix(res.ObjectKey, ".png") {
		t.Fatalf("unexpected object key %q", res.ObjectKey)
	}
	if res.ThumbnailObjectKey != thumbnailObjectKey(res.ObjectKey) {
		t.Fatalf("thumbnail key = %q", res.ThumbnailObjectKey)
	}
	if s.store.puts[res.ObjectKey] != "image/png" || s.store.puts[res.ThumbnailObjectKey] != "image/jpeg" {
		t.Fatalf("unexpected puts %v", s.store.puts)
	}

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, multipartRequest(t, "notes.txt", []byte("not an image"), admin))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("text upload: expected 400, got %d", w.Code)
	}
}

func TestCapitalTransactionsAndDashboard(t *testing.T) {
	s := newTestServer(t, fakeFetcher{})
	admin := s.signUpAndIn("owner@gems.lk")
	viewer := s.viewerToken("partner@gems.lk")

	if w := s.do(http.MethodPost, "/api/capital", viewer, map[string]any{"investor_id": admin.Profile.ID, "amount": "1000"}); w.Code != http.StatusForbidden {
		t.Fatalf("viewer capital: expected 403, got %d", w.Code)
	}
	w := s.do(http.MethodPost, "/api/capital", admin.Token, map[string]any{"investor_id": admin.Profile.ID, "amount": "150000"})
	if w.Code != http.StatusCreated {
		t.Fatalf("capital: %d %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/capital", viewer, nil)
	rows := decode[[]capitalRow](t, w).Data
	if len(rows) != 1 || rows[0].InvestorName != "Dulip" {
		t.Fatalf("capital rows = %+v", rows)
	}
	if w := s.do(http.MethodGet, "/api/capital/"+rows[0].ID+"/logs", viewer, nil); w.Code != http.StatusOK {
		t.Fatalf("capital logs: %d", w.Code)
	} else if logs := decode[[]models.ActivityLog](t, w).Data; len(logs) != 1 || logs[0].Note != models.CapitalEntryNote {
		t.Fatalf("capital logs = %+v", logs)
	}

	s.do(http.MethodPost, "/api/transactions", admin.Token, map[string]any{"amount": "500", "type": "Expense", "description": "cutting"})
	w = s.do(http.MethodPost, "/api/transactions", admin.Token, map[string]any{"amount": "800", "type": "Income"})
	created := decode[models.Transaction](t, w).Data
	if created.Person != "owner@gems.lk" {
		t.Fatalf("person should default to the actor email, got %q", created.Person)
	}
	w = s.do(http.MethodGet, "/api/transactions", viewer, nil)
	list := decode[models.TransactionList](t, w).Data
	if len(list.Transactions) != 2 || !list.Totals.Expense.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("transactions = %+v", list)
	}
	if w := s.do(http.MethodDelete, "/api/transactions/"+created.ID, admin.Token, nil); w.Code != http.StatusOK {
		t.Fatalf("delete transaction: %d", w.Code)
	}

	s.do(http.MethodPost, "/api/inventory", admin.Token, map[string]any{"gem_type": "Ruby", "weight_ct": "2", "buying_price": "1000"})
	w = s.do(http.MethodGet, "/api/dashboard", viewer, nil)
	metrics := decode[models.DashboardMetrics](t, w).Data
	if metrics.Active.Count != 1 || !metrics.TotalCapital.Amount.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("dashboard = %+v", metrics)
	}
	if w := s.do(http.MethodGet, "/api/dashboard/gem-types", viewer, nil); w.Code != http.StatusOK {
		t.Fatalf("gem types stats: %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/logs?action_type=CREATE", viewer, nil)
	if logs := decode[[]models.ActivityLogView](t, w).Data; len(logs) != 2 {
		t.Fatalf("expected 2 CREATE logs, got %d", len(logs))
	}
}

func TestValuationPreviewAndRates(t *testing.T) {
	s := newTestServer(t, fakeFetcher{rate: decimal.NewFromInt(300), ok: true})
	admin := s.signUpAndIn("owner@gems.lk").Token
	viewer := s.viewerToken("partner@gems.lk")

	w := s.do(http.MethodGet, "/api/rates/usd-lkr", viewer, nil)
	quote := decode[models.RateQuote](t, w).Data
	if quote.Source != models.RateSourceLive || !quote.Rate.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("quote = %+v", quote)
	}

	// preview picks up the stored live rate
	w = s.do(http.MethodPost, "/api/valuation/preview", viewer, map[string]any{
		"weight_ct": "5", "weight_post_cut": "4", "predict_val_per_ct": "10", "val_currency": "USD",
	})
	res := decode[map[string]decimal.Decimal](t, w).Data
	if !res["usd_rate"].Equal(decimal.NewFromInt(300)) || !res["total_value_lkr"].Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("preview = %v", res)
	}

	if w := s.do(http.MethodPost, "/api/rates/usd-lkr", viewer, map[string]string{"rate": "310"}); w.Code != http.StatusForbidden {
		t.Fatalf("viewer manual rate: expected 403, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/rates/usd-lkr", admin, map[string]string{"rate": "0"}); w.Code != http.StatusBadRequest {
		t.Fatalf("zero rate: expected 400, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/rates/usd-lkr", admin, map[string]string{"rate": "310"}); w.Code != http.StatusCreated {
		t.Fatalf("manual rate: %d %s", w.Code, w.Body.String())
	}
}
