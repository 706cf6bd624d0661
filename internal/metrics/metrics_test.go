package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues(UpstreamGitHub, OutcomeMiss))

	ObserveUpstream(UpstreamGitHub, OutcomeMiss)
	ObserveUpstream(UpstreamGitHub, OutcomeMiss)

	after := testutil.ToFloat64(UpstreamRequests.WithLabelValues(UpstreamGitHub, OutcomeMiss))
	assert.Equal(t, before+2, after)
}
