package telemetry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const fieldSize = 4 // all decoded fields are little endian int32

// Layout describes where the fields are located within the segment.
// The defaults follow the Assetto Corsa graphics page (SPageFileGraphic).
type Layout struct {
	RecordSize     int `yaml:"recordSize"`
	PacketID       int `yaml:"packetId"`
	Status         int `yaml:"status"`
	NumberOfLaps   int `yaml:"numberOfLaps"`
	CurrentLapTime int `yaml:"currentLapTime"`
	LastLapTime    int `yaml:"lastLapTime"`
}

func DefaultLayout() Layout {
	return Layout{
		RecordSize:     156,
		PacketID:       0,
		Status:         4,
		NumberOfLaps:   132, // completedLaps
		CurrentLapTime: 140, // iCurrentTime
		LastLapTime:    144, // iLastTime
	}
}

func (l Layout) Validate() error {
	if l.RecordSize <= 0 {
		return fmt.Errorf("%w: record size %d", ErrInvalidLayout, l.RecordSize)
	}
	for _, f := range []struct {
		name   string
		offset int
	}{
		{"packetId", l.PacketID},
		{"status", l.Status},
		{"numberOfLaps", l.NumberOfLaps},
		{"currentLapTime", l.CurrentLapTime},
		{"lastLapTime", l.LastLapTime},
	} {
		if f.offset < 0 || f.offset+fieldSize > l.RecordSize {
			return fmt.Errorf("%w: field %s at offset %d exceeds record size %d",
				ErrInvalidLayout, f.name, f.offset, l.RecordSize)
		}
	}
	return nil
}

// LoadLayout reads a layout from a yaml file.
// Keys missing in the file keep their default values.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	ret := DefaultLayout()
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if err := ret.Validate(); err != nil {
		return Layout{}, err
	}
	return ret, nil
}

func (l Layout) YAML() (string, error) {
	data, err := yaml.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
