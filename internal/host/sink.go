package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/canvas-host/internal/wasm"
)

// instanceSink delivers flushed events through the guest's exports.
type instanceSink struct {
	instance *wasm.Instance
}

func (s instanceSink) EventBuffer(ctx context.Context) (uint32, error) {
	results, err := s.instance.Call(ctx, wasm.ExportEventBuffer)
	if err != nil {
		return 0, err
	}
	return api.DecodeU32(results[0]), nil
}

func (s instanceSink) WriteEvents(ptr uint32, data []byte) error {
	return s.instance.Memory().Write(ptr, data)
}

func (s instanceSink) SetEventCount(ctx context.Context, n int32) error {
	_, err := s.instance.Call(ctx, wasm.ExportSetEventCount, api.EncodeI32(n))
	return err
}
