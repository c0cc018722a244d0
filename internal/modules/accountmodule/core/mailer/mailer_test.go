package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer("noreply@streamhub.local", hclog.New(&hclog.LoggerOptions{Output: &buf}))

	require.NoError(t, m.Send(context.Background(), Message{To: "a@b.co", Subject: "Activate", Body: "link"}))
	assert.Contains(t, buf.String(), "to=a@b.co")
	assert.Contains(t, buf.String(), "from=noreply@streamhub.local")

	assert.Error(t, m.Send(context.Background(), Message{Subject: "nobody"}))
}

func TestRecordingMailer(t *testing.T) {
	m := &RecordingMailer{}
	_, ok := m.Last()
	assert.False(t, ok)

	require.NoError(t, m.Send(context.Background(), Message{To: "one"}))
	require.NoError(t, m.Send(context.Background(), Message{To: "two"}))

	last, ok := m.Last()
	assert.True(t, ok)
	assert.Equal(t, "two", last.To)
	assert.Len(t, m.Messages(), 2)

	m.Err = errors.New("smtp down")
	assert.Error(t, m.Send(context.Background(), Message{To: "three"}))
	assert.Len(t, m.Messages(), 2)
}
