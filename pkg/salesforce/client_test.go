package salesforce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockClient implements Client with function fields so individual tests
// only stub the calls they care about.
type mockClient struct {
	queryFn            func(ctx context.Context, soql string, out any) error
	insertOneFn        func(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	insertCollectionFn func(ctx context.Context, sObjectName string, records []map[string]any) ([]CollectionResult, error)
	updateOneFn        func(ctx context.Context, sObjectName string, id string, fields map[string]any) error
	updateCollectionFn func(ctx context.Context, sObjectName string, records []CollectionRecord) ([]CollectionResult, error)
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	if m.queryFn == nil {
		return nil
	}
	return m.queryFn(ctx, soql, out)
}

func (m *mockClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if m.insertOneFn == nil {
		return "00Q000000000001", nil
	}
	return m.insertOneFn(ctx, sObjectName, record)
}

func (m *mockClient) InsertCollection(ctx context.Context, sObjectName string, records []map[string]any) ([]CollectionResult, error) {
	if m.insertCollectionFn == nil {
		results := make([]CollectionResult, len(records))
		for i := range records {
			results[i] = CollectionResult{ID: "00Q" + string(rune('A'+i)), Success: true}
		}
		return results, nil
	}
	return m.insertCollectionFn(ctx, sObjectName, records)
}

func (m *mockClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if m.updateOneFn == nil {
		return nil
	}
	return m.updateOneFn(ctx, sObjectName, id, fields)
}

func (m *mockClient) UpdateCollection(ctx context.Context, sObjectName string, records []CollectionRecord) ([]CollectionResult, error) {
	if m.updateCollectionFn == nil {
		results := make([]CollectionResult, len(records))
		for i, r := range records {
			results[i] = CollectionResult{ID: r.ID, Success: true}
		}
		return results, nil
	}
	return m.updateCollectionFn(ctx, sObjectName, records)
}

func TestClientInterfaceCompliance(t *testing.T) {
	t.Parallel()
	var _ Client = (*mockClient)(nil)
	var _ Client = (*restClient)(nil)
	require.NotNil(t, NewClient(nil))
}

func TestWithRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		opts       []ClientOption
		wantRate   rate.Limit
		wantBurst  int
		wantNilLim bool
	}{
		{"whole rate", []ClientOption{WithRateLimit(10)}, 10, 10, false},
		{"fractional rate rounds burst up to one", []ClientOption{WithRateLimit(0.5)}, 0.5, 1, false},
		{"zero rate leaves calls unthrottled", []ClientOption{WithRateLimit(0)}, 0, 0, true},
		{"negative rate leaves calls unthrottled", []ClientOption{WithRateLimit(-5)}, 0, 0, true},
		{"no option", nil, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(nil, tt.opts...).(*restClient)
			if tt.wantNilLim {
				assert.Nil(t, c.limiter)
				return
			}
			require.NotNil(t, c.limiter)
			assert.Equal(t, tt.wantRate, c.limiter.Limit())
			assert.Equal(t, tt.wantBurst, c.limiter.Burst())
		})
	}
}

func TestThrottle_CancelledContext(t *testing.T) {
	// Zero burst makes Wait block until ctx is done.
	c := &restClient{limiter: rate.NewLimiter(rate.Every(time.Hour), 0)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.throttle(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: rate limit")
}

func TestThrottle_NilLimiterPasses(t *testing.T) {
	c := &restClient{}
	assert.NoError(t, c.throttle(context.Background()))
}

func TestCollectionResult(t *testing.T) {
	r := CollectionResult{
		ID:      "00Qxx",
		Success: false,
		Errors:  []string{"REQUIRED_FIELD_MISSING: LastName"},
	}
	assert.False(t, r.Success)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "REQUIRED_FIELD_MISSING")
}
