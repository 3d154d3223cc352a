package sensor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nicktill/tinyweather/pkg/interval"
)

// Transport carries one measurement cycle's traffic to the server.
type Transport interface {
	// FetchInterval returns the sampling interval the server asks for
	FetchInterval(ctx context.Context) (interval.Interval, error)

	// Send uploads one measurement
	Send(ctx context.Context, m Measurement) error
}

// HTTPTransport talks to /interval.txt and /collect, as the firmware does.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates a transport for the server at baseURL.
func NewHTTP(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchInterval reads interval.txt.
func (t *HTTPTransport) FetchInterval(ctx context.Context) (interval.Interval, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/interval.txt", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch interval: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("interval request failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return 0, fmt.Errorf("failed to read interval: %w", err)
	}
	return interval.Parse(string(body))
}

// Send posts the measurement as a form, one decimal for temperature.
func (t *HTTPTransport) Send(ctx context.Context, m Measurement) error {
	form := url.Values{
		"Temperature": {strconv.FormatFloat(m.Temperature, 'f', 1, 64)},
		"Humidity":    {strconv.Itoa(m.Humidity)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/collect", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}

// MQTTTransport publishes readings and takes the interval from the
// retained interval topic.
type MQTTTransport struct {
	client        mqtt.Client
	readingTopic  string
	intervalTopic string
	timeout       time.Duration
}

// NewMQTT wraps a connected client.
func NewMQTT(client mqtt.Client, readingTopic, intervalTopic string) *MQTTTransport {
	return &MQTTTransport{
		client:        client,
		readingTopic:  readingTopic,
		intervalTopic: intervalTopic,
		timeout:       10 * time.Second,
	}
}

// FetchInterval subscribes long enough to receive the retained value.
func (t *MQTTTransport) FetchInterval(ctx context.Context) (interval.Interval, error) {
	values := make(chan string, 1)
	token := t.client.Subscribe(t.intervalTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case values <- string(msg.Payload()):
		default:
		}
	})
	if !token.WaitTimeout(t.timeout) {
		return 0, fmt.Errorf("subscribe %s: timed out", t.intervalTopic)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("subscribe %s: %w", t.intervalTopic, err)
	}
	defer t.client.Unsubscribe(t.intervalTopic)

	select {
	case raw := <-values:
		return interval.Parse(raw)
	case <-time.After(t.timeout):
		return 0, fmt.Errorf("no retained interval on %s", t.intervalTopic)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Send publishes the measurement as JSON.
func (t *MQTTTransport) Send(ctx context.Context, m Measurement) error {
	payload := fmt.Sprintf(`{"temperature":%s,"humidity":%d}`,
		strconv.FormatFloat(m.Temperature, 'f', 1, 64), m.Humidity)

	token := t.client.Publish(t.readingTopic, 1, false, payload)
	if !token.WaitTimeout(t.timeout) {
		return fmt.Errorf("publish %s: timed out", t.readingTopic)
	}
	return token.Error()
}
