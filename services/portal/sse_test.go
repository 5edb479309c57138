package portal

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEFrameReaderSingleEvent(t *testing.T) {
	stream := "data: {\"target\":\"changedBooking\"}\u001e\n\n"
	reader := newSSEFrameReader(strings.NewReader(stream))

	payloads, err := reader.Next()
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, `{"target":"changedBooking"}`, payloads[0])

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEFrameReaderMultipleRecordsPerEvent(t *testing.T) {
	// The hub batches several separator-terminated messages in one data line.
	stream := "data: {\"type\":6}\u001e{\"target\":\"changedPizarra\"}\u001e\n\n"
	reader := newSSEFrameReader(strings.NewReader(stream))

	payloads, err := reader.Next()
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, `{"type":6}`, payloads[0])
	assert.Equal(t, `{"target":"changedPizarra"}`, payloads[1])
}

func TestSSEFrameReaderSkipsCommentsAndEmptyEvents(t *testing.T) {
	stream := ": keep-alive\n\n" +
		"event: message\n" +
		"data: {\"target\":\"changedBooking\"}\u001e\n\n"
	reader := newSSEFrameReader(strings.NewReader(stream))

	payloads, err := reader.Next()
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, `{"target":"changedBooking"}`, payloads[0])
}

func TestSplitRecordsDropsBlankChunks(t *testing.T) {
	records := splitRecords("{\"a\":1}\u001e{\"b\":2}\u001e")
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, records)
}
