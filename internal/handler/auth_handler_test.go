package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"campusmart/internal/config"
	"campusmart/internal/domain/model"
	"campusmart/internal/repository"
	auth "campusmart/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// メモリ上のユーザー
// =====================

type memUsers struct {
	mu     sync.Mutex
	byID   map[int64]*model.User
	audits []model.AuditLog
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*model.User{}}
}

func (m *memUsers) Create(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, err := m.FindByID(ctx, id); err == nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Update(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) IncrementTokenVersion(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func (m *memUsers) AdjustCounter(ctx context.Context, id int64, counter model.UserCounter, delta int64) error {
	return nil
}

type memAudit struct{ m *memUsers }

func (a memAudit) Create(ctx context.Context, log model.AuditLog) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.audits = append(a.m.audits, log)
	return nil
}

func (a memAudit) List(ctx context.Context, f repository.AuditLogFilter) ([]model.AuditLog, int64, error) {
	return a.m.audits, int64(len(a.m.audits)), nil
}

type memUsersTx struct{ m *memUsers }

func (t memUsersTx) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.TxRepos) error) error {
	return fn(ctx, t)
}

func (t memUsersTx) Users() repository.UserRepository                    { return t.m }
func (t memUsersTx) AuditLogs() repository.AuditLogRepository            { return memAudit{t.m} }
func (t memUsersTx) Orders() repository.OrderRepository                  { return nil }
func (t memUsersTx) OrderItems() repository.OrderItemRepository          { return nil }
func (t memUsersTx) Carts() repository.CartRepository                    { return nil }
func (t memUsersTx) CartItems() repository.CartItemRepository            { return nil }
func (t memUsersTx) Inventory() repository.InventoryRepository           { return nil }
func (t memUsersTx) Products() repository.ProductRepository              { return nil }
func (t memUsersTx) Reviews() repository.ReviewRepository                { return nil }
func (t memUsersTx) Outbox() repository.OutboxRepository                 { return nil }
func (t memUsersTx) Reconciliation() repository.ReconciliationRepository { return nil }

// =====================
// helper
// =====================

type authFixture struct {
	e     *echo.Echo
	users *memUsers
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := config.Config{JWTSecret: "handler-secret", JWTTTL: time.Hour}
	users := newMemUsers()
	issuer, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL)
	require.NoError(t, err)

	h := NewAuthHandler(
		auth.NewRegisterUserUsecase(users, auth.NewBcryptPasswordHasher(4), issuer, auth.SystemClock()),
		auth.NewLoginUsecase(users, auth.NewBcryptPasswordVerifier(), issuer, auth.SystemClock()),
		auth.NewAccountUsecase(memUsersTx{users}, auth.SystemClock()),
	)
	e := newEcho()
	h.RegisterRoutes(e.Group("/api"), cfg, users)
	return &authFixture{e: e, users: users}
}

func (f *authFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

type tokenResponse struct {
	User struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	} `json:"token"`
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) tokenResponse {
	t.Helper()
	var out tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// =====================
// tests
// =====================

func TestAuthFlow_RegisterLoginLogout(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", `{"name":"Hanako","email":"hanako@campus.ac.jp","password":"Sup3rSecret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeToken(t, rec)
	assert.Equal(t, "buyer", reg.User.Role)
	assert.Equal(t, 3600, reg.Token.ExpiresIn)

	rec = f.do(t, http.MethodPost, "/api/auth/register", "", `{"name":"Hanako","email":"hanako@campus.ac.jp","password":"Sup3rSecret!"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"hanako@campus.ac.jp","password":"wrong-one!"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decode(t, rec).Message)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"hanako@campus.ac.jp","password":"Sup3rSecret!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeToken(t, rec).Token.AccessToken

	rec = f.do(t, http.MethodGet, "/api/auth/profile", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// ログアウト後の古いトークンは401
	rec = f.do(t, http.MethodGet, "/api/auth/profile", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"name":"A","password":"Sup3rSecret!"}`},
		{"short password", `{"name":"A","email":"a@campus.ac.jp","password":"short"}`},
		{"weak password", `{"name":"A","email":"a@campus.ac.jp","password":"password123"}`},
		{"admin role", `{"name":"A","email":"a@campus.ac.jp","password":"Sup3rSecret!","role":"admin"}`},
		{"unknown field", `{"name":"A","email":"a@campus.ac.jp","password":"Sup3rSecret!","is_admin":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error)
		})
	}
}

func TestAuth_UpgradeSellerAndForceLogout(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", `{"name":"Taro","email":"taro@campus.ac.jp","password":"Sup3rSecret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	buyer := decodeToken(t, rec)

	rec = f.do(t, http.MethodPost, "/api/auth/upgrade-seller", buyer.Token.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"seller"`)

	// 二回目は400
	rec = f.do(t, http.MethodPost, "/api/auth/upgrade-seller", buyer.Token.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, f.users.audits, 1)
	assert.Equal(t, model.AuditActionUpgradeSeller, f.users.audits[0].Action)

	// 管理者は登録できないので直接作る
	admin := &model.User{Name: "Admin", Email: "admin@campus.ac.jp", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), admin))
	issuer, err := auth.NewJWTIssuer("handler-secret", time.Hour)
	require.NoError(t, err)
	adminToken, _, err := issuer.Issue(admin.ID, model.RoleAdmin, 0, time.Now())
	require.NoError(t, err)

	// 出品者はadmin APIを使えない
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/force-logout", admin.ID), buyer.Token.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/force-logout", buyer.User.ID), adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fl forceLogoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fl))
	assert.Equal(t, forceLogoutResponse{UserID: buyer.User.ID, NewTokenVersion: 1}, fl)

	rec = f.do(t, http.MethodPost, "/api/admin/users/999/force-logout", adminToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/auth/profile", buyer.Token.AccessToken, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
