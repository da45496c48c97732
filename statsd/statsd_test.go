package statsd_test

import (
	"testing"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"

	"pkg.world.dev/world-engine/blobstore/assert"
	"pkg.world.dev/world-engine/blobstore/statsd"
)

type recordingClient struct {
	ddstatsd.NoOpClient
	gauges   map[string]float64
	incrs    []string
	timings  int
	lastTags []string
}

func (r *recordingClient) Gauge(name string, value float64, tags []string, _ float64) error {
	r.gauges[name] = value
	r.lastTags = tags
	return nil
}

func (r *recordingClient) Incr(name string, tags []string, _ float64) error {
	r.incrs = append(r.incrs, name)
	r.lastTags = tags
	return nil
}

func (r *recordingClient) Timing(_ string, _ time.Duration, tags []string, _ float64) error {
	r.timings++
	r.lastTags = tags
	return nil
}

func TestInitRequiresAddress(t *testing.T) {
	assert.ErrorContains(t, statsd.Init("", nil), "address must not be empty")
}

func TestDefaultClientIsNoOp(t *testing.T) {
	statsd.SetClient(nil)
	assert.NotPanics(t, func() {
		statsd.EmitEntityCount("p0", 3)
		statsd.EmitTransfer("p0", "p1")
		statsd.EmitTickStat(time.Now(), "p0")
	})
}

func TestEmittersTagThePartition(t *testing.T) {
	rec := &recordingClient{gauges: map[string]float64{}}
	statsd.SetClient(rec)
	t.Cleanup(func() { statsd.SetClient(nil) })

	statsd.EmitEntityCount("p0", 7)
	assert.Equal(t, 7.0, rec.gauges["entities"])
	assert.DeepEqual(t, []string{"partition:p0"}, rec.lastTags)

	statsd.EmitTransfer("p0", "p1")
	assert.DeepEqual(t, []string{"transfers"}, rec.incrs)
	assert.DeepEqual(t, []string{"from:p0", "to:p1"}, rec.lastTags)

	statsd.EmitTickStat(time.Now(), "p1")
	assert.Equal(t, 1, rec.timings)
}
