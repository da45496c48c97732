// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so if we decide to migrate away from datadog in the future, we only need to
// edit this single file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// SetClient replaces the global client. Passing nil restores the no-op client.
func SetClient(c ddstatsd.ClientInterface) {
	if c == nil {
		c = &ddstatsd.NoOpClient{}
	}
	client = c
}

// EmitTickStat records how long one tick of a partition took.
func EmitTickStat(start time.Time, partition string) {
	duration := time.Since(start)
	err := Client().Timing("tick", duration, []string{"partition:" + partition}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit tick stat: %v", err)
	}
}

// EmitEntityCount reports the number of live entities in a partition.
func EmitEntityCount(partition string, count int) {
	err := Client().Gauge("entities", float64(count), []string{"partition:" + partition}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit entity count: %v", err)
	}
}

// EmitTransfer counts one entity leaving from for to.
func EmitTransfer(from, to string) {
	err := Client().Incr("transfers", []string{"from:" + from, "to:" + to}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit transfer: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("blobstore."),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "failed to create statsd client")
	}
	// Success! replace the global client
	client = newClient
	return nil
}

// Close flushes and closes the global client and puts the no-op client back.
func Close() error {
	err := client.Close()
	client = &ddstatsd.NoOpClient{}
	return eris.Wrap(err, "")
}
