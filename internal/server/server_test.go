package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/chat"
	"github.com/fathima-sithara/quickads/internal/discovery"
	"github.com/fathima-sithara/quickads/internal/handlers"
	"github.com/fathima-sithara/quickads/internal/httpclient"
	"github.com/fathima-sithara/quickads/internal/moderation"
	"github.com/fathima-sithara/quickads/internal/otp"
	"github.com/fathima-sithara/quickads/internal/posts"
	"github.com/fathima-sithara/quickads/internal/profile"
	"github.com/fathima-sithara/quickads/internal/resource"
)

const verifiedPosts = `{"success":true,"data":[
	{"postId":"p-1","model":"Axio","brand":"Toyota","destination":"Colombo","totalViews":10,"verify":true,"createdAt":"2025-01-02"},
	{"postId":"p-2","model":"Civic","brand":"Honda","destination":"Kandy","totalViews":50,"verify":true,"createdAt":"2025-01-03"},
	{"postId":"p-3","model":"Prius","brand":"Toyota","destination":"Galle","totalViews":30,"verify":true,"createdAt":"2025-01-01"}
]}`

const allPosts = `{"success":true,"data":[
	{"postId":"p-1","title":"Axio","verify":true},
	{"postId":"p-9","title":"Vitz","verify":false}
]}`

type upstream struct {
	mu       sync.Mutex
	created  map[string][]string
	files    int
	edits    map[string]map[string]any
	otpPosts []string
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/getVerifyAllPosts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, verifiedPosts)
	})
	mux.HandleFunc("GET /api/getAllPosts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("userId") != "" {
			_, _ = io.WriteString(w, `[{"postId":"p-1","model":"Axio"}]`)
			return
		}
		_, _ = io.WriteString(w, allPosts)
	})
	mux.HandleFunc("GET /api/get-otp/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "verified-user" {
			_, _ = io.WriteString(w, `[{"userId":"verified-user","veryOTP":true}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	mux.HandleFunc("POST /api/send-otp", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.otpPosts = append(u.otpPosts, r.URL.Path)
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("POST /api/createPost", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, `{"message":"bad form"}`, http.StatusBadRequest)
			return
		}
		u.mu.Lock()
		u.created = r.MultipartForm.Value
		u.files = len(r.MultipartForm.File["images"])
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true,"data":{"postId":"p-new"}}`)
	})
	mux.HandleFunc("PUT /api/editPost/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.edits[r.PathValue("id")] = body
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("POST /ask", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"answer":{"content":"Try Kandy."}}`)
	})
	return mux
}

func newTestApp(t *testing.T) (*fiber.App, *upstream) {
	t.Helper()
	up := &upstream{edits: map[string]map[string]any{}}
	srv := httptest.NewServer(up.handler())
	t.Cleanup(srv.Close)

	log := zap.NewNop()
	api := httpclient.NewClient(httpclient.ClientConfig{Timeout: 5 * time.Second}, discovery.Static(srv.URL), log)
	cache := resource.New(nil, resource.Options{FreshFor: time.Minute, Logger: log})
	t.Cleanup(cache.Close)

	postSvc := posts.NewService(api, cache, posts.Options{ListingPath: "/dashboard/posts"}, log)
	chatSvc := chat.NewService(api, srv.URL+"/ask", log)
	h := handlers.New(handlers.Deps{
		Posts:       postSvc,
		OTP:         otp.NewService(api, cache, nil, log),
		Moderation:  moderation.NewService(postSvc, api, cache, nil, "admin", log),
		Profile:     profile.NewService(api, cache, nil, log),
		Chat:        chatSvc,
		LoginPath:   "/auth/login",
		VerifyPath:  "/auth/verify-otp",
		HealthCheck: func() fiber.Map { return fiber.Map{"upstream": api.BreakerState()} },
		Log:         log,
	})
	v, err := auth.NewVerifier("")
	require.NoError(t, err)

	app := New(Config{AdminRole: "admin"}, Deps{
		Handler:  h,
		Verifier: v,
		Relay:    chat.NewRelay(chatSvc, chat.RelayConfig{}, log),
		Log:      log,
	})
	return app, up
}

func bearer(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": userID}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("dev"))
	require.NoError(t, err)
	return "Bearer " + s
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req, 10_000)
	require.NoError(t, err)
	var env envelope
	b, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(b, &env)
	return resp.StatusCode, env
}

func TestHealthAndCatalog(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok","upstream":"closed"}`, string(b))

	code, env := call(t, app, httptest.NewRequest("GET", "/api/v1/catalog", nil))
	assert.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), "Colombo")
	assert.Contains(t, string(env.Data), "properties")
}

func TestAdsPipeline(t *testing.T) {
	app, _ := newTestApp(t)

	code, env := call(t, app, httptest.NewRequest("GET", "/api/v1/ads?q=toyota&sort=popular", nil))
	require.Equal(t, 200, code)
	var page handlers.AdsPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Prius", page.Items[0].Model)
	assert.Equal(t, "Axio", page.Items[1].Model)
	assert.Equal(t, 3, page.Total)

	code, env = call(t, app, httptest.NewRequest("GET", "/api/v1/ads?destination=Kandy,Galle&sort=latest", nil))
	require.Equal(t, 200, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Civic", page.Items[0].Model)
	assert.True(t, page.CanReset)

	code, env = call(t, app, httptest.NewRequest("GET", "/api/v1/ads?start=2025-03-01&end=2025-01-01", nil))
	require.Equal(t, 200, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.True(t, page.DateError)
	assert.Len(t, page.Items, 3)

	code, _ = call(t, app, httptest.NewRequest("GET", "/api/v1/ads?start=yesterday", nil))
	assert.Equal(t, 422, code)
}

func TestMyAdsNeedsLogin(t *testing.T) {
	app, _ := newTestApp(t)

	code, _ := call(t, app, httptest.NewRequest("GET", "/api/v1/ads/mine", nil))
	assert.Equal(t, 401, code)

	req := httptest.NewRequest("GET", "/api/v1/ads/mine", nil)
	req.Header.Set("Authorization", bearer(t, "u-1"))
	code, env := call(t, app, req)
	assert.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), "Axio")
}

func TestGate(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/posts/gate", nil)
	req.Header.Set("Authorization", bearer(t, "new-user"))
	code, env := call(t, app, req)
	assert.Equal(t, 403, code)
	assert.Contains(t, string(env.Data), "/auth/verify-otp")

	req = httptest.NewRequest("GET", "/api/v1/posts/gate", nil)
	req.Header.Set("Authorization", bearer(t, "verified-user"))
	code, _ = call(t, app, req)
	assert.Equal(t, 200, code)
}

func TestSendOTPRejectsBadPhone(t *testing.T) {
	app, up := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/otp/send", strings.NewReader(`{"phoneNumber":"0715297881"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "u-1"))
	code, _ := call(t, app, req)
	assert.Equal(t, 400, code)
	assert.Empty(t, up.otpPosts)

	req = httptest.NewRequest("POST", "/api/v1/otp/send", strings.NewReader(`{"phoneNumber":"+94715297881"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "u-1"))
	code, _ = call(t, app, req)
	assert.Equal(t, 200, code)
}

func postForm(t *testing.T, fields map[string]string, files int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i := 0; i < files; i++ {
		part, err := w.CreateFormFile("images", "car.jpg")
		require.NoError(t, err)
		_, _ = part.Write([]byte("jpeg-bytes"))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreatePost(t *testing.T) {
	app, up := newTestApp(t)
	fields := map[string]string{
		"title": "Axio 2016", "yearOfManufacture": "2016", "mileage": "84000", "engineCapacity": "1500",
		"fuelType": "Hybrid", "transmission": "Auto", "bodyType": "Sedan", "destination": "Colombo",
		"description": "Clean", "price": "6500000", "tags": "family,hybrid", "services": "airport,driver",
		"available": `{"startDate":"2024-06-01","endDate":"2024-06-10"}`,
	}

	body, ct := postForm(t, fields, 1)
	req := httptest.NewRequest("POST", "/api/v1/posts", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "new-user"))
	code, _ := call(t, app, req)
	assert.Equal(t, 403, code)

	body, ct = postForm(t, fields, 1)
	req = httptest.NewRequest("POST", "/api/v1/posts", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "verified-user"))
	code, env := call(t, app, req)
	require.Equal(t, 201, code, env.Message)

	var res posts.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "p-new", res.PostID)
	assert.Equal(t, "/dashboard/posts", res.Redirect)

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, []string{"verified-user"}, up.created["userId"])
	assert.Equal(t, []string{"family", "hybrid"}, up.created["tags"])
	assert.Equal(t, 1, up.files)
}

func TestCreatePostValidation(t *testing.T) {
	app, _ := newTestApp(t)
	body, ct := postForm(t, map[string]string{"title": "x", "mileage": "lots"}, 0)
	req := httptest.NewRequest("POST", "/api/v1/posts", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "verified-user"))
	code, env := call(t, app, req)
	assert.Equal(t, 422, code)
	assert.NotEmpty(t, env.Message)
}

func TestAdminAccept(t *testing.T) {
	app, up := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/admin/posts/p-9/accept", nil)
	req.Header.Set("Authorization", bearer(t, "u-1"))
	code, _ := call(t, app, req)
	assert.Equal(t, 403, code)

	req = httptest.NewRequest("GET", "/api/v1/admin/posts?pending=true", nil)
	req.Header.Set("Authorization", bearer(t, "root", "admin"))
	code, env := call(t, app, req)
	require.Equal(t, 200, code)
	var q moderation.Queue
	require.NoError(t, json.Unmarshal(env.Data, &q))
	require.Len(t, q.Rows, 1)
	assert.Equal(t, "Pending", q.Rows[0].Label)

	req = httptest.NewRequest("POST", "/api/v1/admin/posts/p-9/accept", nil)
	req.Header.Set("Authorization", bearer(t, "root", "admin"))
	code, _ = call(t, app, req)
	require.Equal(t, 200, code)

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, true, up.edits["p-9"]["verify"])
	assert.Equal(t, "Vitz", up.edits["p-9"]["title"])
}

func TestChat(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/chat/ask", strings.NewReader(`{"question":"where?"}`))
	req.Header.Set("Content-Type", "application/json")
	code, env := call(t, app, req)
	require.Equal(t, 200, code)
	assert.JSONEq(t, `{"text":"Try Kandy.","isBot":true}`, string(env.Data))

	code, _ = call(t, app, httptest.NewRequest("GET", "/ws/chat", nil))
	assert.Equal(t, fiber.StatusUpgradeRequired, code)
}
