package server_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"naktender/internal"
	"naktender/internal/identity"
	"naktender/internal/portal"
	"naktender/internal/portal/portaltest"
	"naktender/internal/seed"
	"naktender/internal/server"
	"naktender/internal/utils"
	"naktender/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const (
	testPassword = "correct horse battery"
	testUsername = "info@parsomran.ir"
	pdfHeader    = "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
)

type fakeAuth struct {
	ids *portaltest.Identities
}

func (a fakeAuth) Login(ctx context.Context, username, password string) (*identity.Session, error) {
	if password != testPassword || !a.ids.Has(username) {
		return nil, fmt.Errorf("login %s: %w", username, types.ErrUnauthenticated)
	}
	return &identity.Session{AccessToken: "access:" + username, ExpiresIn: 3600}, nil
}

type fakeTokens struct{}

func (fakeTokens) Verify(ctx context.Context, accessToken string) (string, error) {
	username, ok := strings.CutPrefix(accessToken, "access:")
	if !ok {
		return "", fmt.Errorf("verify token: %w", types.ErrUnauthenticated)
	}
	return "sub-" + username, nil
}

type harness struct {
	handler http.Handler
	store   *portaltest.Store
	blobs   *portaltest.Blobs
	ids     *portaltest.Identities
	logs    *test.Hook
	catalog *seed.Catalog
}

func newHarness(t *testing.T, opts ...server.Option) *harness {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		store:   portaltest.NewStore(),
		blobs:   portaltest.NewBlobs(),
		ids:     portaltest.NewIdentities(),
		logs:    hook,
		catalog: seed.DefaultCatalog(now),
	}

	_, err := seed.Seed(context.Background(), logger, h.store, h.catalog)
	require.NoError(t, err)

	config := &types.Config{
		UploadMaxBytes: 1 << 10,
		RequireReferer: true,
		CookieHashKey:  base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("h"), 32)),
		CookieBlockKey: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("b"), 32)),
	}

	svc := portal.New(config, logger, h.store, h.blobs,
		portal.WithClock(func() time.Time { return now }),
		portal.WithIdentityProvider(h.ids),
	)

	srv, err := server.New(config, logger, svc, fakeAuth{ids: h.ids}, fakeTokens{}, opts...)
	require.NoError(t, err)
	h.handler = srv.Handler()

	return h
}

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// logged counts the log entries carrying msg.
func (h *harness) logged(msg string) int {
	n := 0
	for _, entry := range h.logs.AllEntries() {
		if entry.Message == msg {
			n++
		}
	}
	return n
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	data, err := utils.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	field, filename, content string
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = io.WriteString(w, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, utils.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func signupFields() map[string]string {
	return map[string]string{
		"companyName":               "Pars Omran",
		"nationalId":                "10101010101",
		"registrationNumber":        "4411",
		"mobile":                    "09121234567",
		"email":                     "Info@ParsOmran.ir",
		"password":                  testPassword,
		"confirmPassword":           testPassword,
		"ceo.fullName":              "Ali Rezaei",
		"ceo.nationalId":            "0013542419",
		"ceo.mobile":                "09121111111",
		"representative.fullName":   "Sara Ahmadi",
		"representative.nationalId": "0123456789",
		"representative.mobile":     "09122222222",
	}
}

// registerAndLogin signs the test contractor up and returns its access
// cookie.
func (h *harness) registerAndLogin(t *testing.T) *http.Cookie {
	t.Helper()

	rec := h.do(multipartRequest(t, "/register", signupFields(),
		filePart{field: "statute", filename: "statute.pdf", content: pdfHeader},
		filePart{field: "tax", filename: "tax.pdf", content: pdfHeader},
	))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(jsonRequest(t, http.MethodPost, "/login", map[string]string{
		"username": testUsername,
		"password": testPassword,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := cookieNamed(rec, internal.COOKIE_ACCESS_TOKEN_NAME)
	require.NotNil(t, cookie)
	return cookie
}

func accountForm() types.AccountForm {
	return types.AccountForm{
		CompanyName:        "Pars Omran Co",
		NationalID:         "10101010101",
		RegistrationNumber: "4411",
		Mobile:             "09121234567",
		Address:            "Tehran, Valiasr St",
		PostalCode:         "1234567890",
		BankName:           "Melli",
		AccountNumber:      "0101010101",
		Sheba:              "IR120170000000123456789012",
		CEO: types.MemberForm{
			FullName:   "Ali Rezaei",
			NationalID: "0013542419",
			Mobile:     "09121111111",
		},
		Representative: types.MemberForm{
			FullName:   "Sara Ahmadi",
			NationalID: "0123456789",
			Mobile:     "09122222222",
		},
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}
