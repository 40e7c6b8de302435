package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/okian/hoopvision/internal/adapters/mq/queue"
)

const maxLineBytes = 4 << 20

// Sink receives raw records in read order.
type Sink interface {
	EnqueueWait(ctx context.Context, it queue.Item) error
}

// Pump reads newline-delimited records from r and pushes them to sink with
// contiguous sequence numbers starting at zero. Blank lines are ignored. It
// returns the number of records pushed.
func Pump(ctx context.Context, r io.Reader, sink Sink) (int64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var seq int64
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		payload := append([]byte(nil), line...)
		if err := sink.EnqueueWait(ctx, queue.Item{Seq: seq, Payload: payload}); err != nil {
			return seq, fmt.Errorf("enqueue record %d: %w", seq, err)
		}
		seq++
	}
	if err := sc.Err(); err != nil {
		return seq, fmt.Errorf("read records: %w", err)
	}
	return seq, nil
}
