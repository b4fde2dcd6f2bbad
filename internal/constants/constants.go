package constants

import "time"

var PollConfig = struct {
	Interval    time.Duration
	MaxAttempts int
}{
	Interval:    5 * time.Second, // ~900 likers per 25s, 3000 max => ~85s worst case
	MaxAttempts: 60,              // 5 minute ceiling
}

var APIConfig = struct {
	PhantomBusterBaseURL string
	PhantomBusterTimeout time.Duration
	APIKeyHeader         string
}{
	PhantomBusterBaseURL: "https://api.phantombuster.com/api/v2",
	PhantomBusterTimeout: 30 * time.Second,
	APIKeyHeader:         "X-Phantombuster-Key",
}

var CredentialConfig = struct {
	MinSessionCookieLength int
}{
	MinSessionCookieLength: 15,
}

var LinkedInLimits = struct {
	MaxLikers       int
	LikersPerBatch  int
	SecondsPerBatch int
	SetupSeconds    int
}{
	MaxLikers:       3000, // LinkedIn only exposes the first 3000 reactors
	LikersPerBatch:  900,
	SecondsPerBatch: 25,
	SetupSeconds:    30,
}

var CacheTTL = struct {
	PostProfiles time.Duration
	ScrapeLock   time.Duration
}{
	PostProfiles: 10 * time.Minute,
	ScrapeLock:   6 * time.Minute, // poll ceiling + launch/persist margin
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // 3 consecutive failures open the circuit
	ResetTimeout:     30 * time.Second, // default wait before HALF_OPEN
}

var BatchConfig = struct {
	MaxConcurrency int
	MaxURLs        int
}{
	MaxConcurrency: 3,
	MaxURLs:        20,
}

var LogStreamConfig = struct {
	BufferSize       int
	SubscriberBuffer int
	PingInterval     time.Duration
	WriteTimeout     time.Duration
}{
	BufferSize:       500,
	SubscriberBuffer: 64,
	PingInterval:     30 * time.Second,
	WriteTimeout:     10 * time.Second,
}
