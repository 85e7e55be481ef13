package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type countingHandler struct {
	calls int
}

func (h *countingHandler) handle(ctx context.Context, req interface{}) (interface{}, error) {
	h.calls++
	return "response-" + req.(string), nil
}

func TestCachingInterceptor(t *testing.T) {
	interceptor, err := NewCachingInterceptor(2)
	require.NoError(t, err, "Failed to initialize cache")

	ctx := context.Background()
	info := &grpc.UnaryServerInfo{FullMethod: "/cl2pd.v1.TableService/QueryVariables"}
	h := &countingHandler{}

	// cache miss
	resp, err := interceptor(ctx, "request1", info, h.handle)
	assert.NoError(t, err)
	assert.Equal(t, "response-request1", resp)

	// cache hit
	respCached, err := interceptor(ctx, "request1", info, h.handle)
	assert.NoError(t, err)
	assert.Equal(t, "response-request1", respCached)
	assert.Equal(t, 1, h.calls, "handler should not run on a cache hit")

	// fill the cache past its size; request1 is evicted
	_, _ = interceptor(ctx, "request2", info, h.handle)
	_, _ = interceptor(ctx, "request3", info, h.handle)
	_, _ = interceptor(ctx, "request1", info, h.handle)
	assert.Equal(t, 4, h.calls)
}

func TestCachingInterceptorDisabled(t *testing.T) {
	interceptor, err := NewCachingInterceptor(0)
	require.NoError(t, err)

	h := &countingHandler{}
	info := &grpc.UnaryServerInfo{FullMethod: "/cl2pd.v1.TableService/QueryFills"}
	for i := 0; i < 3; i++ {
		_, err := interceptor(context.Background(), "same", info, h.handle)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, h.calls)

	_, err = NewCachingInterceptor(-1)
	assert.Error(t, err)
}

func TestCachingInterceptorSkipsErrors(t *testing.T) {
	interceptor, err := NewCachingInterceptor(4)
	require.NoError(t, err)

	calls := 0
	failing := func(ctx context.Context, req interface{}) (interface{}, error) {
		calls++
		return nil, assert.AnError
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/cl2pd.v1.TableService/QueryTrims"}
	for i := 0; i < 2; i++ {
		_, err := interceptor(context.Background(), "req", info, failing)
		assert.ErrorIs(t, err, assert.AnError)
	}
	assert.Equal(t, 2, calls)
}

func TestGenerateCacheKeyProto(t *testing.T) {
	a, err := structpb.NewStruct(map[string]interface{}{"variables": []interface{}{"A", "B"}, "split": 2})
	require.NoError(t, err)
	b, err := structpb.NewStruct(map[string]interface{}{"split": 2, "variables": []interface{}{"A", "B"}})
	require.NoError(t, err)

	ka, ok := generateCacheKey("/m", a)
	require.True(t, ok)
	kb, ok := generateCacheKey("/m", b)
	require.True(t, ok)
	assert.Equal(t, ka, kb)

	kc, _ := generateCacheKey("/other", a)
	assert.NotEqual(t, ka, kc)
}
