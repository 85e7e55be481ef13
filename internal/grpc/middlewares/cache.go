package middleware

// Responses are kept in an in-memory LRU keyed by method and request.
// Query results depend on the remote services' state, so the cache is
// off unless a size is configured.

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

// NewCachingInterceptor caches successful responses in an LRU of the given
// size. Size 0 returns a pass-through interceptor.
func NewCachingInterceptor(size int) (grpc.UnaryServerInterceptor, error) {
	if size < 0 {
		return nil, fmt.Errorf("cache size must not be negative, got %d", size)
	}
	if size == 0 {
		return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
			return handler(ctx, req)
		}, nil
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		key, ok := generateCacheKey(info.FullMethod, req)
		if !ok {
			return handler(ctx, req)
		}

		if cachedResp, ok := cache.Get(key); ok {
			return cachedResp, nil
		}

		resp, err := handler(ctx, req)
		if err != nil {
			return nil, err
		}
		cache.Add(key, resp)
		return resp, nil
	}, nil
}

// generateCacheKey serializes the request deterministically. Requests that
// cannot be serialized are not cached.
func generateCacheKey(method string, req interface{}) (string, bool) {
	var (
		reqBytes []byte
		err      error
	)
	if msg, ok := req.(proto.Message); ok {
		reqBytes, err = proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	} else {
		reqBytes, err = json.Marshal(req)
	}
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s:%s", method, reqBytes), true
}
