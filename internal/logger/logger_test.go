package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type businessErr struct{}

func (businessErr) Error() string  { return "capacity exhausted" }
func (businessErr) Expected() bool { return true }

func TestContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")
	defer Initialize("info", "text")

	ctx := WithContext(context.Background(), "request_id", "req-1")
	InfoContext(ctx, "hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	StateChange(ctx, "BK-1", "pending", "confirmed")
	assert.Contains(t, buf.String(), `"from":"pending"`)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestExitMethodWithError_Level(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")
	defer Initialize("info", "text")

	ExitMethodWithError("CreateBooking", businessErr{})
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	ExitMethodWithError("CreateBooking", errors.New("connection refused"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
