package notification_test

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/localstore"
	"storefront/pkg/notification"
)

const maxAge = 10 * time.Second

func newSlot(t *testing.T) *notification.SignalSlot {
	store, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	log, _ := logtest.NewNullLogger()
	return notification.NewSignalSlot(store, log, time.Second, maxAge)
}

func TestFreshSignalTicksOnce(t *testing.T) {
	slot := newSlot(t)

	require.NoError(t, slot.Publish(context.Background(), notification.OrderPlaced{At: time.Now()}))

	assert.True(t, slot.Check(time.Now()), "first poll sees the signal")
	assert.False(t, slot.Check(time.Now()), "same signal is not acted on twice")
}

func TestStaleSignalDiscarded(t *testing.T) {
	slot := newSlot(t)

	// A signal written 15 seconds ago against a 10 second bound.
	old := time.Now().Add(-15 * time.Second)
	require.NoError(t, slot.Publish(context.Background(), notification.OrderPlaced{At: old}))

	assert.False(t, slot.Check(time.Now()))
}

func TestEmptySlotIsQuiet(t *testing.T) {
	slot := newSlot(t)
	assert.False(t, slot.Check(time.Now()))
}
