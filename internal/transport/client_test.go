package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voyago-client/internal/apperrors"
	"voyago-client/internal/config"
	"voyago-client/internal/session"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		BaseURL:         baseURL,
		EnvironmentName: config.Development,
		AppVersion:      "1.2.3",
		BuildNumber:     "456",
		Timeouts: config.Timeouts{
			Connect: 2 * time.Second,
			Read:    2 * time.Second,
			Write:   2 * time.Second,
		},
	}
}

// failingStore simulates an unreadable credential store.
type failingStore struct{}

func (failingStore) Read(ctx context.Context) (*session.Credential, error) {
	return nil, errors.New("keychain unavailable")
}
func (failingStore) Save(ctx context.Context, cred session.Credential) error { return nil }
func (failingStore) Clear(ctx context.Context) error                         { return nil }

// countingRecovery records Trigger calls.
type countingRecovery struct {
	calls atomic.Int64
}

func (r *countingRecovery) Trigger(ctx context.Context) error {
	r.calls.Add(1)
	return nil
}

func TestCredentialInjection(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	t.Run("valid token is attached as bearer", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), session.Credential{AccessToken: "tok-1"}))

		client := New(testConfig(srv.URL), zap.NewNop(), WithCredentialStore(store))
		res := client.Get(context.Background(), "/v1/places/nearby", nil)

		require.True(t, res.IsOk())
		assert.Equal(t, "Bearer tok-1", gotAuth.Load())
	})

	t.Run("expired token is not attached", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), session.Credential{
			AccessToken: "tok-stale",
			ExpiresAt:   time.Now().Add(-time.Hour),
		}))

		client := New(testConfig(srv.URL), zap.NewNop(), WithCredentialStore(store))
		res := client.Get(context.Background(), "/v1/places/nearby", nil)

		require.True(t, res.IsOk())
		assert.Equal(t, "", gotAuth.Load())
	})

	t.Run("store read failure proceeds unauthenticated", func(t *testing.T) {
		client := New(testConfig(srv.URL), zap.NewNop(), WithCredentialStore(failingStore{}))
		res := client.Get(context.Background(), "/v1/places/nearby", nil)

		require.True(t, res.IsOk())
		assert.Equal(t, "", gotAuth.Load())
	})
}

func TestDiagnosticHeaders(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL), zap.NewNop())
	res := client.Get(context.Background(), "/v1/places/trending", url.Values{"limit": {"5"}})
	require.True(t, res.IsOk())

	assert.Equal(t, "1.2.3", headers.Get("X-App-Version"))
	assert.Equal(t, "456", headers.Get("X-Build-Number"))
	assert.Equal(t, "development", headers.Get("X-Environment"))
	assert.NotEmpty(t, headers.Get("X-Request-ID"))
	assert.Equal(t, "application/json", headers.Get("Accept"))
}

func TestErrorNormalization(t *testing.T) {
	t.Run("422 with server body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"Email already registered"}`))
		}))
		defer srv.Close()

		client := New(testConfig(srv.URL), zap.NewNop())
		res := client.Post(context.Background(), "/v1/auth/register", map[string]string{"email": "a@b.c"})

		require.True(t, res.IsErr())
		appErr := res.Error()
		assert.Equal(t, apperrors.KindValidation, appErr.Kind)
		assert.Equal(t, "Request could not be processed.", appErr.UserMessage)
		assert.Contains(t, appErr.DebugMessage, "Email already registered")
		assert.Equal(t, 422, appErr.StatusCode)
	})

	t.Run("unreachable host maps to network", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // nothing listens anymore

		client := New(testConfig(srv.URL), zap.NewNop())
		res := client.Get(context.Background(), "/v1/places/nearby", nil)

		require.True(t, res.IsErr())
		assert.Equal(t, apperrors.KindNetwork, res.Error().Kind)
		assert.NotEmpty(t, res.Error().UserMessage)
	})

	t.Run("cancellation settles with cancelled kind", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		client := New(testConfig(srv.URL), zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan apperrors.Kind, 1)
		go func() {
			res := client.Get(ctx, "/v1/places/nearby", nil)
			done <- res.Error().Kind
		}()
		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case kind := <-done:
			assert.Equal(t, apperrors.KindCancelled, kind)
		case <-time.After(2 * time.Second):
			t.Fatal("cancelled request did not settle in time")
		}
	})
}

func TestUnauthorizedRecovery(t *testing.T) {
	newUnauthorizedServer := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"token revoked"}`))
		}))
	}

	t.Run("401 on a business path triggers recovery and still returns the error", func(t *testing.T) {
		srv := newUnauthorizedServer()
		defer srv.Close()

		rec := &countingRecovery{}
		client := New(testConfig(srv.URL), zap.NewNop(), WithRecovery(rec))
		res := client.Get(context.Background(), "/v1/places/nearby", nil)

		require.True(t, res.IsErr())
		assert.Equal(t, apperrors.KindUnauthorized, res.Error().Kind)
		assert.Equal(t, int64(1), rec.calls.Load())
	})

	t.Run("401 on an auth endpoint does not trigger recovery", func(t *testing.T) {
		srv := newUnauthorizedServer()
		defer srv.Close()

		rec := &countingRecovery{}
		client := New(testConfig(srv.URL), zap.NewNop(), WithRecovery(rec))
		res := client.Post(context.Background(), "/v1/auth/login", map[string]string{"email": "x"})

		require.True(t, res.IsErr())
		assert.Equal(t, apperrors.KindUnauthorized, res.Error().Kind)
		assert.Equal(t, int64(0), rec.calls.Load())
	})

	t.Run("two concurrent 401s clear the credential store once", func(t *testing.T) {
		srv := newUnauthorizedServer()
		defer srv.Close()

		store := &clearCountingStore{}
		recovery := session.NewRecovery(store, nil, zap.NewNop())
		client := New(testConfig(srv.URL), zap.NewNop(),
			WithCredentialStore(store), WithRecovery(recovery))

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := client.Get(context.Background(), "/v1/trips", nil)
				assert.True(t, res.IsErr())
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, store.clears.Load(), int64(2))
		assert.GreaterOrEqual(t, store.clears.Load(), int64(1))
	})
}

// clearCountingStore counts Clear calls; Clear blocks briefly so concurrent
// 401s overlap with the in-flight recovery.
type clearCountingStore struct {
	session.MemoryStore
	clears atomic.Int64
}

func (s *clearCountingStore) Clear(ctx context.Context) error {
	time.Sleep(50 * time.Millisecond)
	s.clears.Add(1)
	return s.MemoryStore.Clear(ctx)
}

func TestCircuitBreaker(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.EnableBreaker = true
	client := New(cfg, zap.NewNop())

	// Enough consecutive 5xx responses to trip the breaker.
	for i := 0; i < 10; i++ {
		res := client.Get(context.Background(), "/v1/places/nearby", nil)
		require.True(t, res.IsErr())
	}

	before := hits.Load()
	res := client.Get(context.Background(), "/v1/places/nearby", nil)
	require.True(t, res.IsErr())
	assert.Equal(t, apperrors.KindServer, res.Error().Kind)
	assert.Equal(t, before, hits.Load(), "open breaker must not dispatch")
}

func TestEnvelopePassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"p1"}],"meta":{"total":1}}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL), zap.NewNop())
	res := client.Get(context.Background(), "/v1/places/nearby", nil)

	require.True(t, res.IsOk())
	assert.Equal(t, http.StatusOK, res.Value().StatusCode)
	assert.JSONEq(t, `{"data":[{"id":"p1"}],"meta":{"total":1}}`, string(res.Value().Body))
}
