package mrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampFromFilename(t *testing.T) {
	timestamp, err := TimestampFromFilename("data/raw/rib.20131101.1200.bz2")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2013, 11, 1, 12, 0, 0, 0, time.UTC), timestamp)

	// exported snapshots keep the same stem with another extension
	timestamp, err = TimestampFromFilename("rib.20240229.0400.json")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 4, 0, 0, 0, time.UTC), timestamp)
}

func TestTimestampFromFilename_Invalid(t *testing.T) {
	for _, path := range []string{
		"rib.bz2",
		"rib.yesterday.noon.bz2",
		"20131101.1200.bz2",
	} {
		_, err := TimestampFromFilename(path)
		assert.Error(t, err, "path %q", path)
	}
}

func TestLoadSnapshot_UnsupportedFormat(t *testing.T) {
	_, err := LoadSnapshot("rib.20131101.1200.xml", Options{})
	require.Error(t, err)
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ".xml", unsupported.Ext)
}

func TestSnapshot_Ordering(t *testing.T) {
	early := &Snapshot{Timestamp: time.Date(2013, 11, 1, 12, 0, 0, 0, time.UTC)}
	late := &Snapshot{Timestamp: time.Date(2013, 11, 1, 14, 0, 0, 0, time.UTC)}
	same := &Snapshot{FilePath: "elsewhere/rib.20131101.1200.bz2", Timestamp: early.Timestamp}

	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))
	assert.True(t, early.Equal(same), "equality ignores the source file")
	assert.False(t, early.Equal(late))
	assert.False(t, early.Equal(nil))
}
