package interval

import (
	"context"
	"errors"
	"testing"

	"github.com/nicktill/tinyweather/pkg/storage"
	"github.com/nicktill/tinyweather/pkg/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Interval
		wantErr bool
	}{
		{"1", OneMinute, false},
		{"10", TenMinutes, false},
		{"60", SixtyMinutes, false},
		{" 60\n", SixtyMinutes, false},
		{"5", 0, true},
		{"0", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInterval)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStore_DefaultWhenUnset(t *testing.T) {
	store := NewStore(memory.NewSlot(), Default)

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, TenMinutes, got)
}

func TestStore_InvalidFallbackUsesDefault(t *testing.T) {
	store := NewStore(memory.NewSlot(), Interval(7))

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, Default, got)
}

func TestStore_SetAndGet(t *testing.T) {
	slot := memory.NewSlot()
	store := NewStore(slot, OneMinute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, TenMinutes))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, TenMinutes, got)

	raw, err := slot.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "10", string(raw), "stored as plain minutes, overwritten not appended")

	require.NoError(t, store.Set(ctx, SixtyMinutes))
	raw, _ = slot.Load(ctx)
	require.Equal(t, "60", string(raw))
}

func TestStore_RejectsInvalid(t *testing.T) {
	slot := memory.NewSlot()
	store := NewStore(slot, Default)
	ctx := context.Background()

	err := store.Set(ctx, Interval(5))
	require.ErrorIs(t, err, ErrInvalidInterval)

	raw, err := slot.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, raw, "rejected values must not be written")
}

func TestStore_CorruptValueFallsBack(t *testing.T) {
	slot := memory.NewSlot()
	ctx := context.Background()
	require.NoError(t, slot.Store(ctx, []byte("garbage")))

	got, err := NewStore(slot, SixtyMinutes).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, SixtyMinutes, got)
}

type failingSlot struct{}

func (failingSlot) Load(context.Context) ([]byte, error) {
	return nil, storage.ErrIO
}

func (failingSlot) Store(context.Context, []byte) error {
	return storage.ErrIO
}

func TestStore_StorageFailure(t *testing.T) {
	store := NewStore(failingSlot{}, Default)
	ctx := context.Background()

	got, err := store.Get(ctx)
	require.True(t, errors.Is(err, storage.ErrIO))
	require.Equal(t, Default, got)

	err = store.Set(ctx, OneMinute)
	require.True(t, errors.Is(err, storage.ErrIO))
}

func TestInterval_String(t *testing.T) {
	require.Equal(t, "1", OneMinute.String())
	require.Equal(t, "60", SixtyMinutes.String())
	require.False(t, Interval(5).Valid())
}
