package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// MockClient is a testify mock of Client, shared by the database query
// tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*notionapi.DatabaseQueryResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if page := args.Get(0); page != nil {
		return page.(*notionapi.Page), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if page := args.Get(0); page != nil {
		return page.(*notionapi.Page), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestNewClient_ImplementsClient(t *testing.T) {
	var _ Client = NewClient("secret-token")
	var _ Client = new(MockClient)
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("secret-token", WithRateLimit(10)).(*apiClient)
	assert.Equal(t, rate.Limit(10), c.limiter.Limit())

	c = NewClient("secret-token").(*apiClient)
	assert.Equal(t, rate.Limit(3), c.limiter.Limit())
}

func TestThrottle_CancelledContext(t *testing.T) {
	c := NewClient("secret-token", WithRateLimit(0.001)).(*apiClient)
	// Drain the single burst token.
	require.NoError(t, c.throttle(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.throttle(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
}

func TestMockClient_CreatePage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := &notionapi.PageCreateRequest{}
	mc.On("CreatePage", ctx, req).Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	page, err := mc.CreatePage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("page-1"), page.ID)
	mc.AssertExpectations(t)
}

func TestMockClient_UpdatePage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := &notionapi.PageUpdateRequest{}
	mc.On("UpdatePage", ctx, "page-1", req).Return(nil, eris.New("archived")).Once()

	page, err := mc.UpdatePage(ctx, "page-1", req)
	require.Error(t, err)
	assert.Nil(t, page)
	mc.AssertExpectations(t)
}
