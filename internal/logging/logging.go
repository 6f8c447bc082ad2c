package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Options controls how the process-wide logger is configured.
type Options struct {
	Level      string
	JSON       bool
	WebhookURL string
	Service    string
}

// Setup configures the standard logrus logger and returns it.
func Setup(opts Options) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetOutput(os.Stdout)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if opts.WebhookURL != "" {
		logger.AddHook(NewErrorWebhookHook(opts.WebhookURL, opts.Service))
	}
	return logger
}

// ErrorWebhookHook posts error level entries to an external report sink.
type ErrorWebhookHook struct {
	url     string
	service string
	client  *http.Client
	// sync makes Fire deliver inline; tests use it.
	sync bool
}

func NewErrorWebhookHook(url, service string) *ErrorWebhookHook {
	return &ErrorWebhookHook{
		url:     url,
		service: service,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *ErrorWebhookHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

type errorReport struct {
	Service string         `json:"service"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Time    time.Time      `json:"time"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (h *ErrorWebhookHook) Fire(entry *logrus.Entry) error {
	report := errorReport{
		Service: h.service,
		Level:   entry.Level.String(),
		Message: entry.Message,
		Time:    entry.Time,
		Fields:  make(map[string]any, len(entry.Data)),
	}
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			report.Fields[k] = err.Error()
			continue
		}
		report.Fields[k] = v
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil
	}
	if h.sync {
		h.deliver(payload)
		return nil
	}
	go h.deliver(payload)
	return nil
}

// deliver never reports failure: a broken sink must not break logging.
func (h *ErrorWebhookHook) deliver(payload []byte) {
	resp, err := h.client.Post(h.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return
	}
	resp.Body.Close()
}
