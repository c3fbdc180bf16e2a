package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/m-mizutani/gt"

	"github.com/SoloAWS/incident-command-service/config"
	"github.com/SoloAWS/incident-command-service/core/auth"
	"github.com/SoloAWS/incident-command-service/core/directory"
	"github.com/SoloAWS/incident-command-service/core/incidents"
	"github.com/SoloAWS/incident-command-service/core/rbac"
	"github.com/SoloAWS/incident-command-service/core/store"
	"github.com/SoloAWS/incident-command-service/core/utils"
)

type testEnv struct {
	server    *Server
	verifier  *auth.Verifier
	companyID uuid.UUID
	emailUser uuid.UUID
}

func newDirectoryStub(t *testing.T, companyID, userID uuid.UUID) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/company/by-name/", func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/company/by-name/") != "Acme" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": companyID.String(), "name": "Acme"})
	})
	mux.HandleFunc("/user/companies", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": companyID.String(), "name": "Acme"}})
	})
	mux.HandleFunc("/user/validate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "jane@acme.io" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": userID.String(), "company_id": body["company_id"]})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupServer(t *testing.T, directoryURL string) *testEnv {
	t.Helper()
	companyID := uuid.Must(uuid.NewV4())
	emailUser := uuid.Must(uuid.NewV4())
	if directoryURL == "" {
		directoryURL = newDirectoryStub(t, companyID, emailUser).URL
	}
	cfg := &config.AppConfig{
		AppEnv:      "test",
		ServiceType: "main",
		DBDriver:    store.DriverSQLite,
		DBURL:       filepath.Join(t.TempDir(), "api.db"),
		JWT:         config.JWTConfig{Secret: "secret_key", Algorithm: "HS256"},
		Directory:   config.DirectoryConfig{BaseURL: directoryURL, Timeout: time.Second},
		Uploads:     config.UploadsConfig{MaxBytes: 1 << 16},
	}
	logger := utils.NopLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, cfg.DBDriver, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	verifier, err := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	policy, err := rbac.NewPolicy(rbac.DefaultRules())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	dir := directory.NewClient(cfg.Directory.BaseURL, cfg.EffectiveDirectoryTimeout())
	svc := incidents.NewService(store.NewIncidentsStore(db), dir, policy, logger)
	return &testEnv{
		server:    NewServer(cfg, logger, verifier, svc),
		verifier:  verifier,
		companyID: companyID,
		emailUser: emailUser,
	}
}

func (e *testEnv) token(t *testing.T, subject uuid.UUID, role auth.Role) string {
	t.Helper()
	tok, err := e.verifier.Issue(subject, role, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func createPayload(userID, companyID uuid.UUID) map[string]string {
	return map[string]string{
		"user_id":     userID.String(),
		"company_id":  companyID.String(),
		"description": "Laptop will not boot",
		"channel":     "phone",
		"priority":    "high",
	}
}

func TestHealth(t *testing.T) {
	env := setupServer(t, "")
	rr := env.do(httptest.NewRequest(http.MethodGet, "/incident-command-main/health", nil))
	gt.Equal(t, rr.Code, http.StatusOK)
	gt.Equal(t, decodeBody(t, rr)["status"], any("OK"))
}

func TestCreateIncidentRequiresToken(t *testing.T) {
	env := setupServer(t, "")
	payload := createPayload(uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))

	rr := env.do(jsonRequest(t, http.MethodPost, "/incident", payload))
	gt.Equal(t, rr.Code, http.StatusUnauthorized)
	body := decodeBody(t, rr)
	gt.Equal(t, body["detail"], any("Authentication required"))
	gt.Equal(t, body["version"], any("1.0"))

	req := jsonRequest(t, http.MethodPost, "/incident", payload)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = env.do(req)
	gt.Equal(t, rr.Code, http.StatusUnauthorized)
}

func TestCreateIncidentManagerAndAdvisor(t *testing.T) {
	env := setupServer(t, "")
	mgr := uuid.Must(uuid.NewV4())
	payload := createPayload(uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))

	req := jsonRequest(t, http.MethodPost, "/incident/", payload)
	req.Header.Set("Authorization", "Bearer "+env.token(t, mgr, auth.RoleManager))
	rr := env.do(req)
	gt.Equal(t, rr.Code, http.StatusCreated)
	body := decodeBody(t, rr)
	gt.Equal(t, body["manager_id"], any(mgr.String()))
	gt.Equal(t, body["state"], any("open"))
	gt.Equal(t, body["channel"], any("phone"))
	gt.Equal(t, body["priority"], any("high"))
	gt.NotNil(t, body["creation_date"])

	adv := uuid.Must(uuid.NewV4())
	req = jsonRequest(t, http.MethodPost, "/incident", createPayload(adv, uuid.Must(uuid.NewV4())))
	req.Header.Set("token", env.token(t, adv, auth.RoleAdvisor))
	rr = env.do(req)
	gt.Equal(t, rr.Code, http.StatusCreated)
	_, hasManager := decodeBody(t, rr)["manager_id"]
	gt.False(t, hasManager)
}

func TestCreateIncidentValidation(t *testing.T) {
	env := setupServer(t, "")
	payload := createPayload(uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()))
	payload["channel"] = "fax"
	delete(payload, "description")

	req := jsonRequest(t, http.MethodPost, "/incident", payload)
	req.Header.Set("Authorization", env.token(t, uuid.Must(uuid.NewV4()), auth.RoleAdvisor))
	rr := env.do(req)
	gt.Equal(t, rr.Code, http.StatusBadRequest)

	var body struct {
		Message string `json:"message"`
		Details []struct {
			Location []string `json:"location"`
			Type     string   `json:"type"`
		} `json:"details"`
	}
	gt.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	gt.Equal(t, body.Message, "Validation Error")
	gt.A(t, body.Details).Length(2)
	types := map[string]string{}
	for _, d := range body.Details {
		types[d.Location[1]] = d.Type
	}
	gt.Equal(t, types["description"], "missing")
	gt.Equal(t, types["channel"], "enum")
}

func TestListUserCompany(t *testing.T) {
	env := setupServer(t, "")
	owner := uuid.Must(uuid.NewV4())
	companyID := uuid.Must(uuid.NewV4())
	ownerToken := env.token(t, owner, auth.RoleAdvisor)
	for i := 0; i < 3; i++ {
		req := jsonRequest(t, http.MethodPost, "/incident", createPayload(owner, companyID))
		req.Header.Set("Authorization", "Bearer "+ownerToken)
		gt.Equal(t, env.do(req).Code, http.StatusCreated)
	}
	listBody := map[string]string{"user_id": owner.String(), "company_id": companyID.String()}

	req := jsonRequest(t, http.MethodPost, "/incident/user-company", listBody)
	req.Header.Set("Authorization", "Bearer "+env.token(t, uuid.Must(uuid.NewV4()), auth.RoleAdvisor))
	rr := env.do(req)
	gt.Equal(t, rr.Code, http.StatusForbidden)
	gt.Equal(t, decodeBody(t, rr)["detail"], any("Not authorized to access this data"))

	for _, tok := range []string{ownerToken, env.token(t, uuid.Must(uuid.NewV4()), auth.RoleManager)} {
		req = jsonRequest(t, http.MethodPost, "/incident/user-company", listBody)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr = env.do(req)
		gt.Equal(t, rr.Code, http.StatusOK)
		var items []map[string]any
		gt.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
		gt.A(t, items).Length(3)
		gt.Equal(t, len(items[0]), 4)
		for _, key := range []string{"id", "description", "state", "creation_date"} {
			if _, ok := items[0][key]; !ok {
				t.Fatalf("missing %s in %v", key, items[0])
			}
		}
	}
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		gt.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		gt.NoError(t, err)
		_, err = fw.Write(file)
		gt.NoError(t, err)
	}
	gt.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/incident/user-incident", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUserIncidentWithAttachment(t *testing.T) {
	env := setupServer(t, "")
	owner := uuid.Must(uuid.NewV4())
	tok := "Bearer " + env.token(t, owner, auth.RoleAdvisor)
	fields := map[string]string{
		"user_id":     owner.String(),
		"company_id":  uuid.Must(uuid.NewV4()).String(),
		"description": "Screen flickers",
		"channel":     "IncidentChannel.CHAT",
	}
	req := multipartRequest(t, fields, "screen.txt", []byte("flicker log"))
	req.Header.Set("Authorization", tok)
	rr := env.do(req)
	gt.Equal(t, rr.Code, http.StatusCreated)
	body := decodeBody(t, rr)
	gt.Equal(t, body["channel"], any("chat"))
	gt.Equal(t, body["priority"], any("medium"))
	gt.Equal(t, body["file_name"], any("screen.txt"))
	id := body["id"].(string)

	get := httptest.NewRequest(http.MethodGet, "/incident/"+id+"/file", nil)
	get.Header.Set("Authorization", tok)
	rr = env.do(get)
	gt.Equal(t, rr.Code, http.StatusOK)
	gt.Equal(t, rr.Body.String(), "flicker log")
	gt.S(t, rr.Header().Get("Content-Disposition")).Contains("screen.txt")

	hist := httptest.NewRequest(http.MethodGet, "/incident/"+id+"/history", nil)
	hist.Header.Set("Authorization", tok)
	rr = env.do(hist)
	gt.Equal(t, rr.Code, http.StatusOK)
	var history []map[string]any
	gt.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	gt.A(t, history).Length(1)
	gt.Equal(t, history[0]["description"], any("created by user"))

	fields["priority"] = "urgent"
	req = multipartRequest(t, fields, "", nil)
	req.Header.Set("Authorization", tok)
	rr = env.do(req)
	gt.Equal(t, rr.Code, http.StatusBadRequest)
	errBody := decodeBody(t, rr)
	gt.Equal(t, errBody["code"], any("invalid_enum_value"))
	gt.S(t, errBody["detail"].(string)).Contains("urgent")
}

func TestUserIncidentTooLarge(t *testing.T) {
	env := setupServer(t, "")
	owner := uuid.Must(uuid.NewV4())
	fields := map[string]string{
		"user_id":     owner.String(),
		"company_id":  uuid.Must(uuid.NewV4()).String(),
		"description": "huge",
	}
	req := multipartRequest(t, fields, "big.bin", bytes.Repeat([]byte("x"), 2<<20))
	req.Header.Set("Authorization", "Bearer "+env.token(t, owner, auth.RoleAdvisor))
	rr := env.do(req)
	gt.Equal(t, rr.Code, http.StatusRequestEntityTooLarge)
}

func TestEmailIncident(t *testing.T) {
	env := setupServer(t, "")
	rr := env.do(jsonRequest(t, http.MethodPost, "/incident/email", map[string]string{
		"email":        "jane@acme.io",
		"company_name": "Acme",
		"description":  "Mail server down",
	}))
	gt.Equal(t, rr.Code, http.StatusCreated)
	body := decodeBody(t, rr)
	gt.Equal(t, body["channel"], any("email"))
	gt.Equal(t, body["priority"], any("medium"))
	gt.Equal(t, body["user_id"], any(env.emailUser.String()))
	gt.Equal(t, body["company_id"], any(env.companyID.String()))

	rr = env.do(jsonRequest(t, http.MethodPost, "/incident/email", map[string]string{
		"email":        "jane@acme.io",
		"company_name": "Initech",
		"description":  "wrong company",
	}))
	gt.Equal(t, rr.Code, http.StatusNotFound)
	body = decodeBody(t, rr)
	gt.Equal(t, body["code"], any("company_not_found"))
	gt.S(t, body["detail"].(string)).Contains("Acme")

	rr = env.do(jsonRequest(t, http.MethodPost, "/incident/email", map[string]string{
		"email":        "eve@evil.io",
		"company_name": "Acme",
		"description":  "spoofed",
	}))
	gt.Equal(t, rr.Code, http.StatusForbidden)
	gt.Equal(t, decodeBody(t, rr)["code"], any("email_not_authorized"))

	rr = env.do(jsonRequest(t, http.MethodPost, "/incident/email", map[string]string{
		"email":        "not-an-email",
		"company_name": "Acme",
		"description":  "bad",
	}))
	gt.Equal(t, rr.Code, http.StatusBadRequest)
	gt.Equal(t, decodeBody(t, rr)["message"], any("Validation Error"))
}

func TestEmailIncidentDirectoryDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := down.URL
	down.Close()

	env := setupServer(t, addr)
	rr := env.do(jsonRequest(t, http.MethodPost, "/incident/email", map[string]string{
		"email":        "jane@acme.io",
		"company_name": "Acme",
		"description":  "nobody home",
	}))
	gt.Equal(t, rr.Code, http.StatusServiceUnavailable)
	gt.Equal(t, decodeBody(t, rr)["code"], any("upstream_unavailable"))
}

func TestGetIncidentBadID(t *testing.T) {
	env := setupServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/incident/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, uuid.Must(uuid.NewV4()), auth.RoleManager))
	rr := env.do(req)
	gt.Equal(t, rr.Code, http.StatusBadRequest)
	gt.Equal(t, decodeBody(t, rr)["message"], any("Validation Error"))

	req = httptest.NewRequest(http.MethodGet, "/incident/"+uuid.Must(uuid.NewV4()).String(), nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, uuid.Must(uuid.NewV4()), auth.RoleManager))
	rr = env.do(req)
	gt.Equal(t, rr.Code, http.StatusNotFound)
}

func TestRecoverMiddlewareAnswersJSON(t *testing.T) {
	s := &Server{logger: utils.NopLogger()}
	h := s.recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	gt.Equal(t, rr.Code, http.StatusInternalServerError)
	gt.Equal(t, decodeBody(t, rr)["code"], any("internal_error"))
}

func TestBearerTokenPrefersAuthorization(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("token", "legacy")
	gt.Equal(t, bearerToken(req), "legacy")
	req.Header.Set("Authorization", "Bearer primary")
	gt.Equal(t, bearerToken(req), "Bearer primary")
}
