package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"polyagent/internal/logger"
)

// ConsoleSink 把告警写进主日志流,永远可用。
type ConsoleSink struct{}

func (c *ConsoleSink) Send(text string) error {
	logger.Warnf("[ALERT] %s", text)
	return nil
}

// WebhookSink 以 {"text": ...} 向外部 webhook 推 JSON,
// Slack/Discord 兼容。带最多 3 次重试。
type WebhookSink struct {
	URL    string
	Client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{URL: url, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (w *WebhookSink) Send(text string) error {
	body, _ := json.Marshal(map[string]string{"text": text})

	var lastErr error
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodPost, w.URL, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := w.Client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("webhook status=%d", resp.StatusCode)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}
