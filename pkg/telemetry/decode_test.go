//nolint:funlen // ok for tests
package telemetry

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/lapboard/pkg/model"
)

type rawRecord struct {
	packetID int32
	status   int32
	laps     int32
	current  int32
	last     int32
}

func encodeRecord(layout Layout, r rawRecord) []byte {
	buf := make([]byte, layout.RecordSize)
	put := func(offset int, v int32) {
		binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(v))
	}
	put(layout.PacketID, r.packetID)
	put(layout.Status, r.status)
	put(layout.NumberOfLaps, r.laps)
	put(layout.CurrentLapTime, r.current)
	put(layout.LastLapTime, r.last)
	return buf
}

func TestDecode(t *testing.T) {
	layout := DefaultLayout()
	tests := []struct {
		name    string
		buf     []byte
		want    model.Frame
		wantErr error
	}{
		{
			name: "live frame",
			buf: encodeRecord(layout, rawRecord{
				packetID: 4711, status: 2, laps: 3, current: 12345, last: 92500,
			}),
			want: model.Frame{
				PacketID:       4711,
				Status:         model.StatusLive,
				LastLapTime:    92500 * time.Millisecond,
				CurrentLapTime: 12345 * time.Millisecond,
				NumberOfLaps:   3,
			},
		},
		{
			name: "no lap completed yet",
			buf:  encodeRecord(layout, rawRecord{status: 2, current: 500}),
			want: model.Frame{Status: model.StatusLive, CurrentLapTime: 500 * time.Millisecond},
		},
		{
			name: "longer buffer is accepted",
			buf: append(encodeRecord(layout, rawRecord{laps: 1, last: 60000}),
				make([]byte, 1024)...),
			want: model.Frame{LastLapTime: time.Minute, NumberOfLaps: 1},
		},
		{
			name:    "empty buffer",
			buf:     nil,
			wantErr: ErrReadFailure,
		},
		{
			name:    "negative lap count",
			buf:     encodeRecord(layout, rawRecord{laps: -1}),
			wantErr: ErrReadFailure,
		},
		{
			name:    "negative current lap time",
			buf:     encodeRecord(layout, rawRecord{current: -20}),
			wantErr: ErrReadFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(layout, tt.buf)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, model.Frame{}, got)
				return
			}
			assert.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// every truncation of a valid record must fail without populating a frame
func TestDecode_ShortBuffers(t *testing.T) {
	layout := DefaultLayout()
	full := encodeRecord(layout, rawRecord{
		packetID: 1, status: 2, laps: 7, current: 1000, last: 91000,
	})
	for n := 0; n < layout.RecordSize; n++ {
		got, err := Decode(layout, full[:n])
		if !errors.Is(err, ErrReadFailure) {
			t.Fatalf("len %d: expected ErrReadFailure, got %v", n, err)
		}
		if got != (model.Frame{}) {
			t.Fatalf("len %d: expected zero frame, got %+v", n, got)
		}
	}
}

func TestDecode_InvalidLayout(t *testing.T) {
	layout := DefaultLayout()
	layout.LastLapTime = layout.RecordSize
	_, err := Decode(layout, make([]byte, 1024))
	assert.ErrorIs(t, err, ErrInvalidLayout)
}
