package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestUrgency(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		expected byte
	}{
		{
			name:     "no hint",
			hints:    nil,
			expected: UrgencyNormal,
		},
		{
			name:     "low",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant(UrgencyLow)},
			expected: UrgencyLow,
		},
		{
			name:     "critical",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant(UrgencyCritical)},
			expected: UrgencyCritical,
		},
		{
			name:     "wrong type",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant("high")},
			expected: UrgencyNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notification{Hints: tt.hints}
			assert.Equal(t, tt.expected, n.Urgency())
		})
	}
}

func TestCategory(t *testing.T) {
	n := &Notification{Hints: map[string]dbus.Variant{"category": dbus.MakeVariant("device")}}
	assert.Equal(t, "device", n.Category())

	n = &Notification{}
	assert.Empty(t, n.Category())
}

func TestTransient(t *testing.T) {
	n := &Notification{Hints: map[string]dbus.Variant{"transient": dbus.MakeVariant(true)}}
	assert.True(t, n.Transient())

	n = &Notification{Hints: map[string]dbus.Variant{"transient": dbus.MakeVariant("yes")}}
	assert.False(t, n.Transient())
}

func TestRecordingEmitter_RejectsForeignPath(t *testing.T) {
	var r RecordingEmitter
	assert.Error(t, r.Emit("/org/example", HostInterface+".Control", "quit"))
	assert.Empty(t, r.Signals())
}
