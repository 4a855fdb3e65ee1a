// Package replay reads recorded mouse hook notifications.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/frudas24/mousetap/internal/decoder"
	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/frudas24/mousetap/internal/pipeline"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLine bounds a single recorded line.
const maxLine = 64 * 1024

// MessageCode accepts either a numeric code or an SDK name in JSON.
type MessageCode decoder.Message

// UnmarshalJSON implements json.Unmarshaler.
func (m *MessageCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		code, err := decoder.ParseMessage(s)
		if err != nil {
			return err
		}
		*m = MessageCode(code)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid message code %s: %w", data, err)
	}
	*m = MessageCode(n)
	return nil
}

// MarshalJSON writes the SDK name of the code.
func (m MessageCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(decoder.Message(m).String())
}

// Record is one recorded notification. When Raw is set it holds the native
// payload bytes and overrides the individual fields.
type Record struct {
	T         int64       `json:"t"`
	Msg       MessageCode `json:"msg"`
	Scope     string      `json:"scope,omitempty"`
	X         int32       `json:"x"`
	Y         int32       `json:"y"`
	MouseData uint32      `json:"mouseData,omitempty"`
	ExtraInfo uint32      `json:"extraInfo,omitempty"`
	Raw       []byte      `json:"raw,omitempty"`
}

// Notification converts the record into a pipeline notification.
func (r Record) Notification() (pipeline.Notification, error) {
	scope, err := decoder.ParseScope(r.Scope)
	if err != nil {
		return pipeline.Notification{}, err
	}
	n := pipeline.Notification{Msg: decoder.Message(r.Msg), Scope: scope}
	if len(r.Raw) > 0 {
		p, err := decoder.ReadPayload(r.Raw, scope)
		if err != nil {
			return pipeline.Notification{}, err
		}
		n.Payload = p
		return n, nil
	}
	n.Payload = &decoder.Payload{
		Pt:        mouse.Point{X: r.X, Y: r.Y},
		MouseData: r.MouseData,
		ExtraInfo: r.ExtraInfo,
	}
	return n, nil
}

// Source emits recorded notifications in order.
type Source interface {
	Stream(ctx context.Context, emit func(Record) error) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, emit func(Record) error) error

// Stream calls the underlying function.
func (f SourceFunc) Stream(ctx context.Context, emit func(Record) error) error {
	return f(ctx, emit)
}

// Reader is a Source over JSON lines. Blank lines and lines starting with
// '#' are skipped.
type Reader struct {
	r io.Reader
}

// NewReader returns a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Stream decodes records until EOF, an emit error or cancellation.
func (rd *Reader) Stream(ctx context.Context, emit func(Record) error) error {
	scanner := bufio.NewScanner(rd.r)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Open returns a Source reading the file at path. The file is closed when
// Stream returns.
func Open(path string) Source {
	return SourceFunc(func(ctx context.Context, emit func(Record) error) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return NewReader(f).Stream(ctx, emit)
	})
}

// Paced wraps src so records are emitted at their recorded spacing, scaled
// by speed (2 plays twice as fast). Speed <= 0 disables pacing.
func Paced(src Source, speed float64) Source {
	return pacedSource{src: src, speed: speed, sleep: sleepCtx}
}

type pacedSource struct {
	src   Source
	speed float64
	sleep func(ctx context.Context, d time.Duration) error
}

// Stream forwards records from the wrapped source, sleeping between them.
// A timestamp that goes backwards is emitted at once and does not move the
// pacing clock.
func (p pacedSource) Stream(ctx context.Context, emit func(Record) error) error {
	if p.speed <= 0 {
		return p.src.Stream(ctx, emit)
	}
	var (
		last    int64
		started bool
	)
	return p.src.Stream(ctx, func(rec Record) error {
		if started && rec.T > last {
			gap := time.Duration(float64(rec.T-last) * float64(time.Millisecond) / p.speed)
			if err := p.sleep(ctx, gap); err != nil {
				return err
			}
		}
		if !started || rec.T > last {
			last = rec.T
		}
		started = true
		return emit(rec)
	})
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrStop can be returned from emit to end a stream early without error.
var ErrStop = errors.New("stop replay")

// Handler handles one notification; *pipeline.Pipeline satisfies it.
type Handler interface {
	Handle(ctx context.Context, n pipeline.Notification) (pipeline.Result, error)
}

// Run streams src into h and returns the number of handled notifications.
// Records that fail to convert or decode are reported through onErr and
// skipped. Both callbacks may be nil.
func Run(ctx context.Context, src Source, h Handler, onResult func(Record, pipeline.Result), onErr func(Record, error)) (int, error) {
	count := 0
	err := src.Stream(ctx, func(rec Record) error {
		n, err := rec.Notification()
		if err == nil {
			var res pipeline.Result
			res, err = h.Handle(ctx, n)
			if err == nil {
				count++
				if onResult != nil {
					onResult(rec, res)
				}
				return nil
			}
		}
		if onErr != nil {
			onErr(rec, err)
		}
		return nil
	})
	if errors.Is(err, ErrStop) {
		err = nil
	}
	return count, err
}
