// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package replay

import (
	"context"
	"errors"
	"fmt"
	"io"

	redis "github.com/redis/go-redis/v9"
)

// RedisPopper abstracts the minimal surface RedisSource needs from a Redis
// list client, the same narrowing persistence.RedisEvaler applies to
// Cmdable.Eval.
type RedisPopper interface {
	Pop(ctx context.Context) (string, error)
}

// LoggingRedisPopper is a dependency-free stand-in that always reports the
// list empty. It lets the demo select the redis adapter without a broker.
// Not for production use.
type LoggingRedisPopper struct{}

func (LoggingRedisPopper) Pop(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return "", io.EOF
}

// GoRedisPopper pops JSON event lines off the left end of a Redis list
// using github.com/redis/go-redis/v9.
type GoRedisPopper struct {
	c   *redis.Client
	key string
}

// NewGoRedisPopper returns a RedisPopper reading from key on the client at
// addr.
func NewGoRedisPopper(addr, key string) *GoRedisPopper {
	return &GoRedisPopper{c: redis.NewClient(&redis.Options{Addr: addr}), key: key}
}

func (g *GoRedisPopper) Pop(ctx context.Context) (string, error) {
	v, err := g.c.LPop(ctx, g.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("replay: redis LPOP %s: %w", g.key, err)
	}
	return v, nil
}

// RedisSourceOptions configures RedisSource construction.
type RedisSourceOptions struct {
	Addr string
	Key  string
}

// RedisSource is a TraceSource that reads pre-parsed scheduling events
// pushed onto a Redis list as JSON lines, one event per LPUSH/RPUSH.
type RedisSource struct {
	popper RedisPopper
	ctx    context.Context
}

// NewRedisSource returns a RedisSource. When opts.Addr is empty it falls
// back to LoggingRedisPopper so the demo build stays dependency-free.
func NewRedisSource(opts RedisSourceOptions) (*RedisSource, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("replay: redis source requires a key")
	}
	var popper RedisPopper
	if opts.Addr != "" {
		popper = NewGoRedisPopper(opts.Addr, opts.Key)
	} else {
		popper = LoggingRedisPopper{}
	}
	return &RedisSource{popper: popper, ctx: context.Background()}, nil
}

func (r *RedisSource) Next() (Event, error) {
	line, err := r.popper.Pop(r.ctx)
	if err != nil {
		return Event{}, err
	}
	return decodeLine([]byte(line))
}

func (r *RedisSource) Close() error { return nil }
