package telemetry

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mpapenbr/lapboard/pkg/model"
)

// Decode maps the raw bytes of one record to a Frame.
// A buffer shorter than the record size is rejected before any field is read.
func Decode(layout Layout, buf []byte) (model.Frame, error) {
	if err := layout.Validate(); err != nil {
		return model.Frame{}, err
	}
	if len(buf) < layout.RecordSize {
		return model.Frame{}, fmt.Errorf("%w: got %d bytes, need %d",
			ErrReadFailure, len(buf), layout.RecordSize)
	}
	i32 := func(offset int) int32 {
		return int32(binary.LittleEndian.Uint32(buf[offset : offset+fieldSize]))
	}
	laps := i32(layout.NumberOfLaps)
	if laps < 0 {
		return model.Frame{}, fmt.Errorf("%w: negative lap count %d", ErrReadFailure, laps)
	}
	current := i32(layout.CurrentLapTime)
	if current < 0 {
		return model.Frame{}, fmt.Errorf("%w: negative current lap time %d",
			ErrReadFailure, current)
	}
	return model.Frame{
		PacketID:       i32(layout.PacketID),
		Status:         model.SimStatus(i32(layout.Status)),
		LastLapTime:    time.Duration(i32(layout.LastLapTime)) * time.Millisecond,
		CurrentLapTime: time.Duration(current) * time.Millisecond,
		NumberOfLaps:   int(laps),
	}, nil
}
