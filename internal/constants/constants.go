package constants

import "time"

var CacheTTL = struct {
	PageSnapshot time.Duration
	ShareLookup  time.Duration
	RecentFeed   time.Duration
}{
	PageSnapshot: 10 * time.Minute, // 同一博主短时间内重复提交时复用快照
	ShareLookup:  30 * time.Minute,
	RecentFeed:   30 * time.Second,
}

var RetryConfig = struct {
	MaxAttempts int
	Delay       time.Duration
}{
	MaxAttempts: 3,
	Delay:       1 * time.Second,
}

var GenerationLimits = struct {
	MaxContentRunes int
	MaxTokens       int
	Temperature     float64
}{
	MaxContentRunes: 18000, // 截断后再拼进 prompt，控制 token 消耗
	MaxTokens:       4000,
	Temperature:     0.7,
}

var FetchConfig = struct {
	Timeout   time.Duration
	UserAgent string
}{
	Timeout:   45 * time.Second,
	UserAgent: "Mozilla/5.0 (compatible; RoastBot/1.0)",
}

var FeedConfig = struct {
	DefaultPageSize  int
	MaxPageSize      int
	OverFetchFactor  int
	MaxBackfillLoops int
	MinRoastLength   int
}{
	DefaultPageSize:  10,
	MaxPageSize:      50,
	OverFetchFactor:  3, // 客户端过滤会丢行，超量拉取补偿
	MaxBackfillLoops: 3,
	MinRoastLength:   50,
}

var WebSocketConfig = struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	SendBufferSize int
}{
	WriteTimeout:   5 * time.Second,
	PingInterval:   30 * time.Second,
	SendBufferSize: 8,
}

var ShareConfig = struct {
	TokenLength int
}{
	TokenLength: 10,
}
