package progress

import (
	"io"
	"sync/atomic"
)

// Reader wraps an io.Reader, counts the bytes read through it and reports
// progress via a callback every interval bytes and once more at EOF.
type Reader struct {
	reader     io.Reader
	total      int64
	interval   int64
	onProgress func(read, total int64)

	read       atomic.Int64
	lastReport int64
}

// NewReader returns a Reader. A nil callback or a non-positive interval disables reporting.
func NewReader(r io.Reader, total, interval int64, onProgress func(read, total int64)) *Reader {
	return &Reader{
		reader:     r,
		total:      total,
		interval:   interval,
		onProgress: onProgress,
	}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		read := pr.read.Add(int64(n))

		if pr.interval > 0 && read-pr.lastReport >= pr.interval {
			pr.report(read)
		}
	}

	if err == io.EOF && pr.lastReport != pr.read.Load() {
		pr.report(pr.read.Load())
	}

	return n, err
}

// BytesRead is safe to call while another goroutine reads.
func (pr *Reader) BytesRead() int64 {
	return pr.read.Load()
}

func (pr *Reader) report(read int64) {
	pr.lastReport = read

	if pr.onProgress != nil {
		pr.onProgress(read, pr.total)
	}
}
