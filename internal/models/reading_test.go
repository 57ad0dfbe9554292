package models

import (
	"errors"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func fullRaw() RawReading {
	ts := time.Date(2019, 3, 4, 13, 0, 0, 0, time.UTC)
	return RawReading{
		StationID: "AP001",
		Datetime:  "2019-03-04 13:00:00",
		Timestamp: &ts,
		Values: [NumChannels]*float64{
			ptr(40.5), ptr(90), ptr(22.1), ptr(0.8), ptr(12), ptr(35), ptr(9), ptr(101),
		},
	}
}

// TestRawReading_ToClean tests the completeness conversion
func TestRawReading_ToClean(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*RawReading)
		wantErr    bool
		wantField  string
		checkClean func(*testing.T, *CleanReading)
	}{
		{
			name:    "complete record",
			mutate:  func(*RawReading) {},
			wantErr: false,
			checkClean: func(t *testing.T, c *CleanReading) {
				if c.StationID != "AP001" {
					t.Errorf("StationID = %v, want AP001", c.StationID)
				}
				if c.Hour != 13 {
					t.Errorf("Hour = %d, want 13", c.Hour)
				}
				if c.Value(PM25) != 40.5 {
					t.Errorf("PM2.5 = %v, want 40.5", c.Value(PM25))
				}
				if c.Value(AQI) != 101 {
					t.Errorf("AQI = %v, want 101", c.Value(AQI))
				}
			},
		},
		{
			name:      "missing timestamp",
			mutate:    func(r *RawReading) { r.Timestamp = nil },
			wantErr:   true,
			wantField: "Datetime",
		},
		{
			name:      "missing pollutant",
			mutate:    func(r *RawReading) { r.Values[NO2] = nil },
			wantErr:   true,
			wantField: "NO2",
		},
		{
			name:      "missing target",
			mutate:    func(r *RawReading) { r.Values[AQI] = nil },
			wantErr:   true,
			wantField: "AQI",
		},
		{
			name:    "empty station id is not a completeness failure",
			mutate:  func(r *RawReading) { r.StationID = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fullRaw()
			tt.mutate(&raw)

			clean, err := raw.ToClean()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToClean() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if vErr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
				}
				if vErr.IsTransient() {
					t.Error("validation errors must not be transient")
				}
				return
			}
			if tt.checkClean != nil {
				tt.checkClean(t, clean)
			}
		})
	}
}

func TestChannel_Column(t *testing.T) {
	want := []string{"PM2.5", "PM10", "NO2", "CO", "SO2", "O3", "NH3", "AQI"}
	for i, ch := range Channels {
		if ch.Column() != want[i] {
			t.Errorf("Channels[%d].Column() = %q, want %q", i, ch.Column(), want[i])
		}
	}
	if Channel(99).Column() != "UNKNOWN" {
		t.Errorf("out of range channel should be UNKNOWN")
	}
	if len(Pollutants) != 7 {
		t.Errorf("len(Pollutants) = %d, want 7", len(Pollutants))
	}
}

func TestLaggedSample_Lags(t *testing.T) {
	s := LaggedSample{AQILag1: 1, AQILag2: 2, AQILag3: 3, AQILag6: 6}
	got := s.Lags()
	want := []float64{1, 2, 3, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Lags()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
