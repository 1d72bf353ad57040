package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var alertCounterScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

const defaultAlertPrefix = "leaddesk:alerts"

// AlertResult reports where a security event stands against its rule.
type AlertResult struct {
	Triggered bool
	Count     int64
	Threshold int64
	Window    time.Duration
}

// AuditAlerter counts failed admin events per client in Redis and flags
// bursts that look like credential stuffing or token probing.
type AuditAlerter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewAuditAlerter dials Redis at addr. A blank addr disables alerting and
// returns nil, which is safe to call Observe on.
func NewAuditAlerter(addr, password, prefix string) *AuditAlerter {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	alerter, _ := NewAuditAlerterWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}), prefix)
	return alerter
}

// NewAuditAlerterWithClient builds an alerter on an existing client.
func NewAuditAlerterWithClient(client *redis.Client, prefix string) (*AuditAlerter, error) {
	if client == nil {
		return nil, errors.New("alerter redis client is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultAlertPrefix
	}
	return &AuditAlerter{client: client, prefix: prefix, now: time.Now}, nil
}

// Observe counts one occurrence of event/outcome from ip. Events without a
// rule are ignored.
func (a *AuditAlerter) Observe(ctx context.Context, event, outcome, ip string) (AlertResult, error) {
	var result AlertResult
	if a == nil {
		return result, nil
	}
	threshold, window, ok := alertRule(event, outcome)
	if !ok {
		return result, nil
	}
	windowMs := window.Milliseconds()
	slot := a.now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:%s:%s:%s:%d", a.prefix, segment(event), segment(outcome), segment(ip), slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := alertCounterScript.Run(ctx, a.client, []string{key}, windowMs).Int64()
	if err != nil {
		return result, fmt.Errorf("alert counter %s: %w", event, err)
	}
	result.Count = count
	result.Threshold = threshold
	result.Window = window
	result.Triggered = count >= threshold
	return result, nil
}

// Close releases the Redis client.
func (a *AuditAlerter) Close() error {
	if a == nil {
		return nil
	}
	return a.client.Close()
}

func alertRule(event, outcome string) (threshold int64, window time.Duration, ok bool) {
	switch strings.TrimSpace(outcome) {
	case "rate_limited":
		return 20, time.Minute, true
	case "fail":
	default:
		return 0, 0, false
	}
	switch strings.TrimSpace(event) {
	case "admin.login":
		return 10, 5 * time.Minute, true
	case "admin.authorize":
		return 25, 5 * time.Minute, true
	default:
		return 0, 0, false
	}
}

var segmentReplacer = strings.NewReplacer(":", "_", "|", "_", " ", "_")

func segment(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}
	return segmentReplacer.Replace(in)
}
