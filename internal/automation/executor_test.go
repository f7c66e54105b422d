package automation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koeurnDev/EZA-POST-sub000/internal/config"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/accounts"
)

var testSite = config.SiteConfig{
	HomeURL:        "https://site.test/",
	LoginURL:       "https://site.test/login",
	UsernameInput:  "#user",
	PasswordInput:  "#pass",
	SubmitButton:   "#submit",
	LoggedInMarker: "#me",
	LikeButton:     "#like",
	LikedMarker:    ".liked",
	CommentInput:   "#comment",
	CommentSubmit:  "#send",
	ShareButton:    "#share",
	ShareConfirm:   "#copy",
}

var loginTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeVault struct{ password string }

func (v fakeVault) Decrypt(_ *accounts.Account) (string, error) { return v.password, nil }

type fakeLoginStore struct {
	saved []accounts.Status
}

func (s *fakeLoginStore) SaveLogin(_ context.Context, a *accounts.Account) error {
	s.saved = append(s.saved, a.Status)
	return nil
}

type executorFixture struct {
	exec   *Executor
	pool   *SessionPool
	page   *fakePage
	store  *fakeLoginStore
	delays *recordingDelay
}

func newExecutorFixture(t *testing.T, page *fakePage) *executorFixture {
	t.Helper()
	l := &fakeLauncher{page: func() *fakePage { return page }}
	pool := NewSessionPool(l, 2)
	require.NoError(t, pool.Init(context.Background()))
	t.Cleanup(pool.Shutdown)

	f := &executorFixture{pool: pool, page: page, store: &fakeLoginStore{}, delays: &recordingDelay{}}
	f.exec = NewExecutor(pool, f.store, fakeVault{password: "pw"}, testSite, Options{
		NavigationTimeout: 15 * time.Second,
		Rand:              func() float64 { return 0.5 },
		Delay:             f.delays.Delay,
		Now:               func() time.Time { return loginTime },
	})
	return f
}

func presentPage(selectors ...string) *fakePage {
	p := &fakePage{present: map[string]bool{}}
	for _, s := range selectors {
		p.present[s] = true
	}
	return p
}

func TestLikeAlreadyLikedIsSuccess(t *testing.T) {
	page := presentPage("#like", ".liked")
	f := newExecutorFixture(t, page)

	ok := f.exec.Like(context.Background(), &accounts.Account{ID: 1}, "https://site.test/p/1")
	assert.True(t, ok)
	assert.NotContains(t, page.calls, "click:#like")
	assert.Equal(t, 1, page.closed)
}

func TestLikeClicksButton(t *testing.T) {
	page := presentPage("#like")
	f := newExecutorFixture(t, page)

	ok := f.exec.Like(context.Background(), &accounts.Account{ID: 1}, "https://site.test/p/1")
	require.True(t, ok)
	assert.Equal(t, []string{"nav:https://site.test/p/1", "scroll", "click:#like"}, page.calls)
	assert.Equal(t, 1, page.closed)
}

func TestActionFailuresReturnFalseAndClosePage(t *testing.T) {
	tests := []struct {
		name string
		page *fakePage
		run  func(e *Executor, a *accounts.Account) bool
	}{
		{
			name: "like button missing",
			page: presentPage(),
			run: func(e *Executor, a *accounts.Account) bool {
				return e.Like(context.Background(), a, "https://site.test/p/1")
			},
		},
		{
			name: "navigation fails",
			page: &fakePage{present: map[string]bool{"#like": true}, navErr: assert.AnError},
			run: func(e *Executor, a *accounts.Account) bool {
				return e.Like(context.Background(), a, "https://site.test/p/1")
			},
		},
		{
			name: "comment input missing",
			page: presentPage("#send"),
			run: func(e *Executor, a *accounts.Account) bool {
				return e.Comment(context.Background(), a, "https://site.test/p/1", "Nice!")
			},
		},
		{
			name: "share confirm missing",
			page: presentPage("#share"),
			run: func(e *Executor, a *accounts.Account) bool {
				return e.Share(context.Background(), a, "https://site.test/p/1")
			},
		},
		{
			name: "panic inside driver",
			page: &fakePage{present: map[string]bool{"#like": true}, panicOn: "#like"},
			run: func(e *Executor, a *accounts.Account) bool {
				return e.Like(context.Background(), a, "https://site.test/p/1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExecutorFixture(t, tt.page)
			assert.NotPanics(t, func() {
				assert.False(t, tt.run(f.exec, &accounts.Account{ID: 1}))
			})
			assert.Equal(t, 1, tt.page.closed)

			// Аренда снята: браузер можно выдать снова
			_, release, err := f.pool.Acquire(context.Background(), 1)
			require.NoError(t, err)
			release()
		})
	}
}

func TestCommentTypesText(t *testing.T) {
	page := presentPage("#comment", "#send")
	f := newExecutorFixture(t, page)

	ok := f.exec.Comment(context.Background(), &accounts.Account{ID: 1}, "https://site.test/p/1", "Nice!")
	require.True(t, ok)
	assert.Equal(t, "Nice!", page.typed["#comment"])
	assert.Contains(t, page.calls, "click:#send")
}

func TestShareWithConfirm(t *testing.T) {
	page := presentPage("#share", "#copy")
	f := newExecutorFixture(t, page)

	require.True(t, f.exec.Share(context.Background(), &accounts.Account{ID: 1}, "https://site.test/p/1"))
	assert.Contains(t, page.calls, "click:#copy")
}

func TestLoginRestoresSavedSession(t *testing.T) {
	blob, err := EncodeCookies(json.RawMessage(`[{"name":"sid","value":"abc","domain":".site.test"}]`))
	require.NoError(t, err)

	page := presentPage("#me")
	f := newExecutorFixture(t, page)
	a := &accounts.Account{ID: 1, Username: "bob", Status: accounts.StatusError, Session: blob}

	require.True(t, f.exec.Login(context.Background(), a))
	assert.Equal(t, accounts.StatusActive, a.Status)
	assert.Equal(t, []accounts.Status{accounts.StatusActive}, f.store.saved)
	assert.Equal(t, []Cookie{{Name: "sid", Value: "abc", Domain: ".site.test"}}, page.set)
	assert.Empty(t, page.typed, "логин и пароль не вводились")
	assert.Equal(t, 1, page.closed)
}

func TestLoginWithCredentialsSavesSession(t *testing.T) {
	page := presentPage("#user", "#pass", "#submit")
	page.clickAdds = map[string]string{"#submit": "#me"}
	page.cookies = []Cookie{{Name: "sid", Value: "fresh"}}
	f := newExecutorFixture(t, page)
	a := &accounts.Account{ID: 1, Username: "bob", Status: accounts.StatusActive}

	require.True(t, f.exec.Login(context.Background(), a))
	assert.Equal(t, "bob", page.typed["#user"])
	assert.Equal(t, "pw", page.typed["#pass"])
	assert.Equal(t, accounts.StatusActive, a.Status)
	require.NotNil(t, a.CookiesUpdated)
	assert.Equal(t, loginTime, *a.CookiesUpdated)

	cookies, err := decodeSession(a.Session)
	require.NoError(t, err)
	assert.Equal(t, page.cookies, cookies)

	// Паузы между нажатиями: по одной на символ, в пределах 50–150 мс
	keystrokes := 0
	for _, w := range f.delays.waits {
		if w < 200*time.Millisecond {
			keystrokes++
			assert.GreaterOrEqual(t, w, 50*time.Millisecond)
			assert.Less(t, w, 150*time.Millisecond)
		}
	}
	assert.Equal(t, len("bob")+len("pw"), keystrokes)
}

func TestLoginFailureSetsError(t *testing.T) {
	page := presentPage("#user", "#pass", "#submit")
	f := newExecutorFixture(t, page)
	a := &accounts.Account{ID: 1, Username: "bob", Status: accounts.StatusActive}

	assert.False(t, f.exec.Login(context.Background(), a))
	assert.Equal(t, accounts.StatusError, a.Status)
	assert.Equal(t, []accounts.Status{accounts.StatusError}, f.store.saved)
	assert.Nil(t, a.Session)
}

func TestLoginWithClosedPoolNeverPanics(t *testing.T) {
	f := newExecutorFixture(t, presentPage())
	f.pool.Shutdown()
	a := &accounts.Account{ID: 1, Username: "bob", Status: accounts.StatusBanned}

	assert.False(t, f.exec.Login(context.Background(), a))
	assert.Equal(t, accounts.StatusBanned, a.Status, "бан не снимается и не меняется")
}

func TestEncodeCookiesAcceptsExtensionFormat(t *testing.T) {
	blob, err := EncodeCookies(json.RawMessage(`[{"name":"sid","value":"1","expirationDate":1893456000,"sameSite":"no_restriction"},{"name":"","value":"x"}]`))
	require.NoError(t, err)

	cookies, err := decodeSession(blob)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, float64(1893456000), cookies[0].Expires)
	assert.Equal(t, "None", cookies[0].SameSite)

	_, err = EncodeCookies(json.RawMessage(`[]`))
	assert.Error(t, err)
	_, err = EncodeCookies(json.RawMessage(`{"name":"sid"}`))
	assert.Error(t, err)
}

func TestRandomCommentFromPhraseList(t *testing.T) {
	f := newExecutorFixture(t, presentPage())
	assert.Contains(t, commentPhrases, f.exec.RandomComment())
}
