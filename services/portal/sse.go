package portal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wodbooker/utils"
)

// sseRecordSeparator terminates every booking-hub message. A single
// `data:` line may carry several terminated messages, so the reader
// splits on the separator instead of assuming one JSON per line.
const sseRecordSeparator = "\u001e"

// sseIdleTimeout bounds how long a stream may stay silent before the
// connection is dropped and reopened.
const sseIdleTimeout = 60 * time.Second

type negotiateResponse struct {
	ConnectionToken string `json:"connectionToken"`
}

type hubMessage struct {
	Target string `json:"target"`
}

// WaitForEvent blocks until the booking hub emits a message whose target
// is in expectedEvents for the room of the given box and date. It
// returns true when a matching event arrived, false when maxDatetime
// passed first. When maxDatetime is zero, events are waited for until
// the end of the given date in Madrid.
func (s *Scraper) WaitForEvent(ctx context.Context, boxURL string, date time.Time, expectedEvents []string, maxDatetime time.Time) (bool, error) {
	s.mu.Lock()
	if err := s.login(ctx); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	meta, err := s.boxMeta(ctx, boxURL)
	if err != nil {
		return false, err
	}

	if maxDatetime.IsZero() {
		maxDatetime = utils.CombineMadrid(date, 23, 59, 59)
	}

	expected := make(map[string]bool, len(expectedEvents))
	for _, name := range expectedEvents {
		expected[name] = true
	}

	for {
		if utils.NowMadrid().After(maxDatetime) {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, WrapError(KindTransient, "wait cancelled", ctx.Err())
		}

		found, err := s.streamOnce(ctx, meta, date, expected, maxDatetime)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
		// Connection ended without a match; reconnect until the deadline.
		s.logger.Warn("Booking hub connection ended without events, reconnecting")
	}
}

// streamOnce opens one booking-hub connection and consumes it until a
// matching event, the deadline, or the end of the stream.
func (s *Scraper) streamOnce(ctx context.Context, meta *BoxMeta, date time.Time, expected map[string]bool, maxDatetime time.Time) (bool, error) {
	var negotiate negotiateResponse
	if err := s.postJSON(ctx, fmt.Sprintf("%s/bookinghub/negotiate?negotiateVersion=1", meta.SSEServer), &negotiate); err != nil {
		return false, err
	}

	streamCtx, cancel := context.WithDeadline(ctx, maxDatetime)
	defer cancel()

	hubURL := fmt.Sprintf("%s/bookinghub?id=%s", meta.SSEServer, negotiate.ConnectionToken)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, hubURL, nil)
	if err != nil {
		return false, WrapError(KindTransient, "building stream request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.stream.Do(req)
	if err != nil {
		if streamCtx.Err() != nil && ctx.Err() == nil {
			return false, nil // deadline reached
		}
		return false, WrapError(KindTransient, "opening booking hub stream", err)
	}
	defer resp.Body.Close()

	if err := s.sendHubCommand(ctx, hubURL, map[string]interface{}{"protocol": "json", "version": 1}); err != nil {
		return false, err
	}
	epoch := utils.UTCMidnightEpoch(date)
	joinRoom := map[string]interface{}{
		"arguments":    []string{meta.Name, fmt.Sprintf("%d", epoch)},
		"invocationId": "0",
		"target":       "JoinRoom",
		"type":         1,
	}
	if err := s.sendHubCommand(ctx, hubURL, joinRoom); err != nil {
		return false, err
	}

	messages := make(chan []string)
	go func() {
		defer close(messages)
		reader := newSSEFrameReader(resp.Body)
		for {
			payloads, err := reader.Next()
			if err != nil {
				return
			}
			select {
			case messages <- payloads:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	idle := time.NewTimer(sseIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case payloads, ok := <-messages:
			if !ok {
				return false, nil // stream closed, caller reconnects
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(sseIdleTimeout)

			for _, payload := range payloads {
				var msg hubMessage
				if err := json.Unmarshal([]byte(payload), &msg); err != nil {
					continue
				}
				if expected[msg.Target] {
					return true, nil
				}
			}
		case <-idle.C:
			s.logger.Warn("No event received, resetting booking hub connection")
			resp.Body.Close()
			return false, nil
		case <-streamCtx.Done():
			if ctx.Err() != nil {
				return false, WrapError(KindTransient, "wait cancelled", ctx.Err())
			}
			return false, nil // deadline reached
		}
	}
}

// sendHubCommand posts a control frame to the booking hub: JSON body
// with the record separator appended, as text/plain.
func (s *Scraper) sendHubCommand(ctx context.Context, hubURL string, command interface{}) error {
	body, err := json.Marshal(command)
	if err != nil {
		return WrapError(KindTransient, "marshalling hub command", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hubURL, strings.NewReader(string(body)+sseRecordSeparator))
	if err != nil {
		return WrapError(KindTransient, "building hub command request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return WrapError(KindTransient, "sending hub command", err)
	}
	resp.Body.Close()
	return nil
}

// postJSON issues an empty POST and decodes the JSON response.
func (s *Scraper) postJSON(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return WrapError(KindTransient, "building request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return WrapError(KindTransient, "request failed", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return NewError(KindUnparseableResponse, "invalid response status from WodBuster")
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return WrapError(KindUnparseableResponse, "WodBuster returned a non JSON response", err)
	}
	return nil
}

// sseFrameReader extracts booking-hub payloads from a text/event-stream
// body. Each call to Next returns the separator-terminated JSON payloads
// of one SSE event.
type sseFrameReader struct {
	scanner *bufio.Scanner
}

func newSSEFrameReader(r io.Reader) *sseFrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseFrameReader{scanner: scanner}
}

// Next reads lines until an event is complete (blank line) and returns
// the payloads of its data field. Events without data are skipped.
func (r *sseFrameReader) Next() ([]string, error) {
	var data []string
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if len(data) == 0 {
				continue
			}
			return splitRecords(strings.Join(data, "\n")), nil
		}
		if strings.HasPrefix(line, "data:") {
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		// Comment and event-name lines carry nothing the hub needs.
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func splitRecords(data string) []string {
	parts := strings.Split(data, sseRecordSeparator)
	records := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			records = append(records, part)
		}
	}
	return records
}
