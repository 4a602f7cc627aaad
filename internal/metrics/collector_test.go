package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, c.conversationsInitiated)
	assert.NotNil(t, c.conversationsResolved)
	assert.NotNil(t, c.stateTransitions)
	assert.NotNil(t, c.escalationsTotal)
	assert.NotNil(t, c.resolutionDuration)
}

func TestCollector_RecordInitiatedAndResolved(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordInitiated("implementation")
	c.RecordInitiated("implementation")
	assert.Equal(t, float64(2), testutil.ToFloat64(c.conversationsInitiated.WithLabelValues("implementation")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.activeConversations))

	c.RecordResolved("answered", 3*time.Minute)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.conversationsResolved.WithLabelValues("answered")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.activeConversations))
}

func TestCollector_RecordEscalationAndTimeouts(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordEscalation("timeout")
	c.RecordEscalation("decline")
	c.RecordTimeout()
	c.RecordStaleTimeout()
	c.RecordStalled()
	c.RecordMisconfiguredLoop()
	c.RecordDeliveryFailure("question")
	c.RecordTransition("escalated")

	assert.Equal(t, float64(1), testutil.ToFloat64(c.escalationsTotal.WithLabelValues("timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.escalationsTotal.WithLabelValues("decline")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.timeoutsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.staleTimeoutsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.stalledTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.misconfiguredLoops))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.deliveryFailures.WithLabelValues("question")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.stateTransitions.WithLabelValues("escalated")))
}
