package interchange

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// IPC encodes the table in the Arrow IPC stream format.
func (t *Interchange) IPC() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteIPC(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteIPC writes the table to w in the Arrow IPC stream format.
func (t *Interchange) WriteIPC(w io.Writer) error {
	iw := ipc.NewWriter(w, ipc.WithSchema(t.schema), ipc.WithAllocator(t.mem))
	for i, rec := range t.batches {
		if err := iw.Write(rec); err != nil {
			_ = iw.Close()
			return fmt.Errorf("failed to write batch %d: %w", i, err)
		}
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("failed to close ipc stream: %w", err)
	}
	return nil
}

// FromIPC decodes a table from Arrow IPC stream bytes.
func FromIPC(data []byte) (*Interchange, error) {
	return ReadIPC(bytes.NewReader(data))
}

// ReadIPC decodes a table from an Arrow IPC stream.
func ReadIPC(r io.Reader) (*Interchange, error) {
	ir, err := ipc.NewReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open ipc stream: %w", err)
	}
	defer ir.Release()
	return FromReader(ir)
}
