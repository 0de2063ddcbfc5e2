package validation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formkit/pkg/model"
)

const (
	MessageNameRequired = "请输入名称"
	MessageNameTaken    = "名称已被占用"

	// DefaultCheckDelay is the simulated round trip of SimulatedChecker.
	DefaultCheckDelay = 500 * time.Millisecond
)

// Checker answers whether a name is still free.
type Checker interface {
	Available(ctx context.Context, name string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, name string) (bool, error)

func (fn CheckerFunc) Available(ctx context.Context, name string) (bool, error) {
	return fn(ctx, name)
}

// NameAvailability builds an async validator rejecting blank or taken names.
func NameAvailability(checker Checker) model.AsyncValidator {
	return model.AsyncValidatorFunc(func(ctx context.Context, value model.Value) error {
		name := strings.TrimSpace(value.Text())
		if name == "" {
			return Reject(MessageNameRequired)
		}
		ok, err := checker.Available(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return Reject(MessageNameTaken)
		}
		return nil
	})
}

// SimulatedChecker answers from a fixed list after an artificial delay.
type SimulatedChecker struct {
	Delay time.Duration
	Taken []string
}

// NewSimulatedChecker returns a checker that treats "admin" as taken.
func NewSimulatedChecker() *SimulatedChecker {
	return &SimulatedChecker{Delay: DefaultCheckDelay, Taken: []string{"admin"}}
}

func (c *SimulatedChecker) Available(ctx context.Context, name string) (bool, error) {
	if c.Delay > 0 {
		timer := time.NewTimer(c.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}
	return !slices.Contains(c.Taken, name), nil
}

// HTTPChecker asks a remote endpoint. The endpoint receives the name as a
// query parameter and answers {"isAvailable": bool}.
type HTTPChecker struct {
	Endpoint string
	Param    string
	Client   *http.Client
}

type availabilityResponse struct {
	IsAvailable bool `json:"isAvailable"`
}

func (c *HTTPChecker) Available(ctx context.Context, name string) (bool, error) {
	endpoint, err := url.Parse(c.Endpoint)
	if err != nil {
		return false, fmt.Errorf("validation: availability endpoint: %w", err)
	}
	param := c.Param
	if param == "" {
		param = "name"
	}
	query := endpoint.Query()
	query.Set(param, name)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false, fmt.Errorf("validation: availability request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("validation: availability request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("validation: availability endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("validation: decode availability response: %w", err)
	}
	return payload.IsAvailable, nil
}
