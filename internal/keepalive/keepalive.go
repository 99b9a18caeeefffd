// Package keepalive periodically pings the service's own public URL so that
// free-tier hosts do not idle the process out. It is optional and disabled
// by default.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultSchedule pings every 30 minutes.
const DefaultSchedule = "*/30 * * * *"

// Pinger issues a GET against a target URL on a fixed interval.
type Pinger struct {
	targetURL  string
	interval   time.Duration
	httpClient *http.Client
}

// New builds a pinger from a cron-style schedule string. Only the simple
// interval forms are supported: "*/N * * * *" (every N minutes),
// "M * * * *" (hourly) and "0 */H * * *" (every H hours).
func New(targetURL, schedule string) (*Pinger, error) {
	if strings.TrimSpace(targetURL) == "" {
		return nil, errors.New("keepalive target URL required")
	}
	interval, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	return &Pinger{
		targetURL:  targetURL,
		interval:   interval,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Interval returns the resolved ping interval.
func (p *Pinger) Interval() time.Duration {
	return p.interval
}

// Run pings until the context is cancelled. Ping failures are logged and
// never abort the loop.
func (p *Pinger) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.targetURL, nil)
	if err != nil {
		slog.Warn("keepalive request build failed", "err", err)
		return
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Warn("keepalive request failed", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		slog.Debug("keepalive request sent", "url", p.targetURL)
		return
	}
	slog.Warn("keepalive request returned non-OK status", "status", resp.StatusCode)
}

// ParseSchedule converts a supported cron expression into an interval.
func ParseSchedule(schedule string) (time.Duration, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = DefaultSchedule
	}
	fields := strings.Fields(schedule)
	if len(fields) != 5 {
		return 0, fmt.Errorf("unsupported cron expression %q: want 5 fields", schedule)
	}
	minute, hour := fields[0], fields[1]
	rest := fields[2:]
	for _, f := range rest {
		if f != "*" {
			return 0, fmt.Errorf("unsupported cron expression %q: only interval schedules are supported", schedule)
		}
	}
	switch {
	case strings.HasPrefix(minute, "*/") && hour == "*":
		n, err := strconv.Atoi(minute[2:])
		if err != nil || n < 1 || n > 59 {
			return 0, fmt.Errorf("unsupported cron minute field %q", minute)
		}
		return time.Duration(n) * time.Minute, nil
	case isCronNumber(minute) && hour == "*":
		return time.Hour, nil
	case isCronNumber(minute) && strings.HasPrefix(hour, "*/"):
		n, err := strconv.Atoi(hour[2:])
		if err != nil || n < 1 || n > 23 {
			return 0, fmt.Errorf("unsupported cron hour field %q", hour)
		}
		return time.Duration(n) * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported cron expression %q", schedule)
}

func isCronNumber(field string) bool {
	n, err := strconv.Atoi(field)
	return err == nil && n >= 0 && n <= 59
}
