package middleware

//go:generate mockgen -source=ratelimit.go -destination=mocks/mocks.go -package=mocks BucketStore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"rollcall/internal/ratelimit/middleware/mocks"
	"rollcall/internal/ratelimit/models"
	"rollcall/internal/ratelimit/store/bucket"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/audit/publisher"
	auditmemory "rollcall/pkg/platform/audit/store/memory"
	"rollcall/pkg/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMarkRouter(m *Middleware, limit int) http.Handler {
	r := chi.NewRouter()
	r.With(m.LimitMarks(limit, time.Minute)).Post("/attendance/mark", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func TestLimitMarks_RejectsAfterLimit(t *testing.T) {
	auditStore := auditmemory.NewInMemoryStore()
	m := New(bucket.NewInMemoryBucketStore(), discardLogger(),
		WithAuditPublisher(publisher.NewPublisher(auditStore)),
	)
	router := newMarkRouter(m, 2)
	student := testutil.Student(testutil.NewCollege(), testutil.NewDepartment(), "1st", "A")

	for range 2 {
		rr := testutil.DoRequest(router, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/attendance/mark"), student))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := testutil.DoRequest(router, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/attendance/mark"), student))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	body := testutil.UnmarshalResponse[models.RateLimitExceededResponse](t, rr)
	assert.Equal(t, 60, body.RetryAfter)
	assert.NotEmpty(t, body.ErrorDescription)

	events, err := auditStore.ListByPrincipal(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRateLimitExceeded), events[0].Action)
	assert.Equal(t, models.MarkKey(student.ID), events[0].Subject)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
}

func TestLimitMarks_BucketsArePerPrincipal(t *testing.T) {
	router := newMarkRouter(New(bucket.NewInMemoryBucketStore(), discardLogger()), 1)
	college, dept := testutil.NewCollege(), testutil.NewDepartment()
	ada := testutil.Student(college, dept, "1st", "A")
	grace := testutil.Student(college, dept, "1st", "A")

	rr := testutil.DoRequest(router, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/attendance/mark"), ada))
	assert.Equal(t, http.StatusCreated, rr.Code)
	rr = testutil.DoRequest(router, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/attendance/mark"), grace))
	assert.Equal(t, http.StatusCreated, rr.Code)
	rr = testutil.DoRequest(router, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/attendance/mark"), ada))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestLimitMarks_StoreFailureLetsRequestThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	buckets := mocks.NewMockBucketStore(ctrl)
	buckets.EXPECT().Allow(gomock.Any(), gomock.Any(), 10, time.Minute).Return(nil, errors.New("redis down"))

	router := newMarkRouter(New(buckets, discardLogger()), 10)
	student := testutil.Student(testutil.NewCollege(), testutil.NewDepartment(), "1st", "A")

	rr := testutil.DoRequest(router, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodPost, "/attendance/mark"), student))
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestLimitMarks_Disabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	buckets := mocks.NewMockBucketStore(ctrl)

	router := newMarkRouter(New(buckets, discardLogger(), WithDisabled(true)), 1)
	for range 3 {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/attendance/mark"))
		assert.Equal(t, http.StatusCreated, rr.Code)
	}
}
