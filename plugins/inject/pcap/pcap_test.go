package pcap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/eapsniffer/internal/core"
	"firestige.xyz/eapsniffer/pkg/plugin"
)

type fakeHandle struct {
	written [][]byte
	err     error
	closed  bool
}

func (f *fakeHandle) WritePacketData(data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeHandle) Close() { f.closed = true }

func newFake(t *testing.T, h *fakeHandle) *Injector {
	t.Helper()
	inj := New().(*Injector)
	inj.open = func(iface string) (writer, error) {
		assert.Equal(t, "eth1", iface)
		return h, nil
	}
	require.NoError(t, inj.Init(map[string]any{"interface": "eth1"}))
	return inj
}

func TestInjector_Lifecycle(t *testing.T) {
	h := &fakeHandle{}
	inj := newFake(t, h)

	assert.ErrorIs(t, inj.Inject([]byte{1}), core.ErrNotActive)

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, inj.Inject([]byte{1, 2, 3}))
	assert.Equal(t, [][]byte{{1, 2, 3}}, h.written)

	require.NoError(t, inj.Stop(context.Background()))
	assert.True(t, h.closed)
	assert.ErrorIs(t, inj.Inject([]byte{1}), core.ErrNotActive)
}

func TestInjector_WriteError(t *testing.T) {
	boom := errors.New("boom")
	inj := newFake(t, &fakeHandle{err: boom})
	require.NoError(t, inj.Start(context.Background()))
	assert.ErrorIs(t, inj.Inject([]byte{1}), boom)
}

func TestInjector_OpenError(t *testing.T) {
	inj := New().(*Injector)
	inj.open = func(string) (writer, error) { return nil, errors.New("no such device") }
	require.NoError(t, inj.Init(map[string]any{"interface": "eth9"}))
	assert.Error(t, inj.Start(context.Background()))
}

func TestInjector_Init(t *testing.T) {
	assert.Error(t, New().Init(map[string]any{}))
	assert.NoError(t, New().Init(map[string]any{"interface": "eth0"}))

	f, err := plugin.GetInjectorFactory(pluginName)
	require.NoError(t, err)
	assert.Equal(t, pluginName, f().Name())
}
