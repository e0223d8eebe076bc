package parser

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/proclens/proclens/internal/model"
)

// XES attribute keys
var (
	xesConceptName = []byte("concept:name")
	xesTimestamp   = []byte("time:timestamp")
)

// XML element names
var (
	xmlTrace  = []byte("trace")
	xmlEvent  = []byte("event")
	xmlString = []byte("string")
	xmlDate   = []byte("date")
	xmlInt    = []byte("int")
	xmlFloat  = []byte("float")
	xmlBool   = []byte("boolean")
)

// XES parser states
type xesState uint8

const (
	stateInit xesState = iota
	stateTrace
	stateEvent
)

// XESParser implements streaming XES parsing using a state machine.
// It reads concept:name for activities and case IDs, and
// time:timestamp when present to establish occurrence order.
type XESParser struct {
	bufferSize int
}

// NewXESParser creates a new XES parser.
func NewXESParser() *XESParser {
	return &XESParser{bufferSize: 64 * 1024}
}

// Parse implements the Parser interface using a streaming state machine.
func (p *XESParser) Parse(ctx context.Context, r io.Reader, out chan<- Event) error {
	reader := bufio.NewReaderSize(r, p.bufferSize)

	state := stateInit
	var caseID string
	var current Event
	var inEvent bool
	traceIndex := 0

	for {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		line, err := reader.ReadBytes('>')
		if err != nil && err != io.EOF {
			return err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		switch {
		case isOpenTag(line, xmlTrace):
			state = stateTrace
			traceIndex++
			// Fallback case ID when the trace carries no concept:name.
			caseID = "trace-" + strconv.Itoa(traceIndex)

		case isCloseTag(line, xmlTrace):
			state = stateInit

		case isOpenTag(line, xmlEvent):
			current = Event{CaseID: caseID}
			inEvent = true

		case isCloseTag(line, xmlEvent):
			if inEvent && current.Activity != "" {
				select {
				case out <- current:
				case <-ctx.Done():
					return ErrContextCanceled
				}
			}
			inEvent = false
			state = stateTrace

		case state == stateTrace && !inEvent && isAttributeTag(line):
			key, value := extractAttribute(line)
			if bytes.Equal(key, xesConceptName) {
				caseID = string(value)
			}

		case inEvent && isAttributeTag(line):
			key, value := extractAttribute(line)
			switch {
			case bytes.Equal(key, xesConceptName):
				current.Activity = model.Activity(value)
			case bytes.Equal(key, xesTimestamp):
				if ts, tsErr := parseXESTimestamp(value); tsErr == nil {
					current.Timestamp = ts
				}
			}
		}

		if err == io.EOF {
			break
		}
	}

	// A document with no trace elements is not an XES log.
	if traceIndex == 0 {
		return ErrInvalidXES
	}
	return nil
}

// isOpenTag checks if line is an opening tag for the given element.
func isOpenTag(line, element []byte) bool {
	if len(line) < len(element)+2 || line[0] != '<' {
		return false
	}
	if !bytes.HasPrefix(line[1:], element) {
		return false
	}
	next := 1 + len(element)
	if next >= len(line) {
		return true
	}
	c := line[next]
	return c == '>' || c == ' ' || c == '\t'
}

// isCloseTag checks if line is a closing tag for the given element.
func isCloseTag(line, element []byte) bool {
	if len(line) < len(element)+3 {
		return false
	}
	if line[0] == '<' && line[1] == '/' {
		return bytes.HasPrefix(line[2:], element)
	}
	// Self-closing <element ... />
	if line[0] == '<' && bytes.HasPrefix(line[1:], element) {
		return line[len(line)-2] == '/' && line[len(line)-1] == '>'
	}
	return false
}

// isAttributeTag checks if line is an XES attribute element.
func isAttributeTag(line []byte) bool {
	if len(line) < 3 || line[0] != '<' {
		return false
	}
	return bytes.HasPrefix(line[1:], xmlString) ||
		bytes.HasPrefix(line[1:], xmlDate) ||
		bytes.HasPrefix(line[1:], xmlInt) ||
		bytes.HasPrefix(line[1:], xmlFloat) ||
		bytes.HasPrefix(line[1:], xmlBool)
}

// extractAttribute extracts key and value from an XES attribute element.
func extractAttribute(line []byte) (key, value []byte) {
	key = extractAttrValue(line, []byte(`key="`))
	value = extractAttrValue(line, []byte(`value="`))
	return key, value
}

// extractAttrValue extracts an XML attribute value.
func extractAttrValue(line, prefix []byte) []byte {
	idx := bytes.Index(line, prefix)
	if idx < 0 {
		return nil
	}
	start := idx + len(prefix)
	end := bytes.IndexByte(line[start:], '"')
	if end < 0 {
		return nil
	}
	return line[start : start+end]
}

// parseXESTimestamp parses XES timestamp formats to nanoseconds.
func parseXESTimestamp(ts []byte) (int64, error) {
	formats := []string{
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	tsStr := string(ts)
	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, tsStr)
		if err == nil {
			return t.UnixNano(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}
