package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"totembo/internal/http/handlers"
	"totembo/internal/repos"
)

// Seeded passwords are stored as bcrypt hashes, never plaintext.
func TestPasswordsSeededAreHashed(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var hashes []string
	require.NoError(t, db.Select(&hashes, `SELECT password_hash FROM users`))
	require.NotEmpty(t, hashes, "no users seeded")
	for _, h := range hashes {
		assert.NotContains(t, h, "Passw0rd!")
		assert.True(t, strings.HasPrefix(h, "$2"), "unexpected hash format: %s", h)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("Passw0rd!")))
	}
}

func TestLoginSuccessFailAndThrottle(t *testing.T) {
	limits := handlers.DefaultLimits()
	limits.Login = 2
	app, _ := newApp(t, handlers.Options{Limits: limits})
	cl := newClient(t, app)

	var bad *http.Response
	entries := captureLogs(t, func() {
		bad = cl.post("/login", url.Values{"username": {"alice"}, "password": {"wrongpass!"}})
	})
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
	assert.Contains(t, body(t, bad), "Что-то пошло не так!")
	assert.True(t, hasAction(entries, "auth.login.fail"))
	assert.Empty(t, cl.cookies["sid"])

	good := cl.post("/login", url.Values{"username": {"alice"}, "password": {"Passw0rd!"}})
	require.Equal(t, http.StatusFound, good.StatusCode)
	assert.Equal(t, "/", good.Header.Get("Location"))
	assert.NotEmpty(t, cl.cookies["sid"])

	home := cl.follow(good)
	page := body(t, home)
	assert.Contains(t, page, "Вы вошли в аккаунт!")
	assert.Contains(t, page, "alice")

	// The flash is shown once.
	assert.NotContains(t, body(t, cl.get("/")), "Вы вошли в аккаунт!")

	third := cl.post("/login", url.Values{"username": {"alice"}, "password": {"wrongpass!"}})
	assert.Equal(t, http.StatusTooManyRequests, third.StatusCode)
}

func TestRegisterValidationAndSuccess(t *testing.T) {
	app, db := newApp(t, handlers.Options{})
	cl := newClient(t, app)

	resp := cl.post("/register", url.Values{
		"username":  {"carol"},
		"email":     {"not-an-email"},
		"password1": {"Passw0rd!"},
		"password2": {"Passw0rd?"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	page := body(t, cl.follow(resp))
	assert.Contains(t, page, "Введите правильный адрес электронной почты.")
	assert.Contains(t, page, "Введенные пароли не совпадают.")

	resp = cl.post("/register", url.Values{
		"username":  {"carol"},
		"email":     {"carol@totembo.test"},
		"password1": {"Passw0rd!"},
		"password2": {"Passw0rd!"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Contains(t, body(t, cl.follow(resp)), "Регистрация прошла успешно!")

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM users WHERE username = 'carol'`))
	assert.Equal(t, 1, n)

	resp = cl.post("/register", url.Values{
		"username":  {"carol"},
		"email":     {"carol2@totembo.test"},
		"password1": {"Passw0rd!"},
		"password2": {"Passw0rd!"},
	})
	assert.Contains(t, body(t, cl.follow(resp)), "Пользователь с таким именем уже существует.")

	cl.login("carol")
}

func TestLogoutDropsSession(t *testing.T) {
	app, _ := newApp(t, handlers.Options{})
	cl := newClient(t, app)
	cl.login("bob")
	sid := cl.cookies["sid"]

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = cl.post("/logout", nil)
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login_registration", resp.Header.Get("Location"))
	assert.True(t, hasAction(entries, "auth.logout"))
	assert.Empty(t, cl.cookies["sid"])
	assert.Contains(t, body(t, cl.follow(resp)), "Уже уходите ??")

	// The old session id no longer authenticates.
	cl.cookies["sid"] = sid
	profile := cl.get("/profile")
	assert.Equal(t, http.StatusFound, profile.StatusCode)
	assert.Equal(t, "/login_registration", profile.Header.Get("Location"))
}

func TestPostWithoutCSRFIsRejected(t *testing.T) {
	app, _ := newApp(t, handlers.Options{})
	cl := newClient(t, app)
	cl.get("/login_registration")

	var resp *http.Response
	entries := captureLogs(t, func() {
		form := strings.NewReader(url.Values{"username": {"alice"}, "password": {"Passw0rd!"}}.Encode())
		r := httptest.NewRequest(http.MethodPost, "/login", form)
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp = cl.do(r)
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Security check failed")
	assert.True(t, hasAction(entries, "csrf.fail"))
}
