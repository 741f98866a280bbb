package timeparse_test

import (
	"testing"
	"time"

	"github.com/cityops/traffic-light-monitor/tools/timeparse"
)

func TestParseFilterTime_FullTimestamp(t *testing.T) {
	result, err := timeparse.ParseFilterTime("2025-01-01T10:30:45")
	if err != nil {
		t.Fatalf("Failed to parse filter time: %v", err)
	}

	expected := time.Date(2025, 1, 1, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseFilterTime_MinutesOnly(t *testing.T) {
	result, err := timeparse.ParseFilterTime("2025-01-01T10:30")
	if err != nil {
		t.Fatalf("Failed to parse filter time: %v", err)
	}

	// Missing seconds normalize to :00
	expected := time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseFilterTime_DateOnly(t *testing.T) {
	result, err := timeparse.ParseFilterTime("2025-01-01")
	if err != nil {
		t.Fatalf("Failed to parse filter time: %v", err)
	}

	expected := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseFilterTime_SpaceSeparator(t *testing.T) {
	result, err := timeparse.ParseFilterTime("2025-01-01 10:30")
	if err != nil {
		t.Fatalf("Failed to parse filter time: %v", err)
	}

	expected := time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseFilterTime_Invalid(t *testing.T) {
	_, err := timeparse.ParseFilterTime("not-a-date")
	if err == nil {
		t.Error("Expected error for invalid filter time")
	}
}

func TestParseInstant_RFC3339(t *testing.T) {
	result, err := timeparse.ParseInstant("2025-01-01T10:00:00Z")
	if err != nil {
		t.Fatalf("Failed to parse instant: %v", err)
	}

	expected := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseInstant_MissingZone(t *testing.T) {
	_, err := timeparse.ParseInstant("2025-01-01T10:00:00")
	if err == nil {
		t.Error("Expected error for instant without zone")
	}
}
