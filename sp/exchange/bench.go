package exchange

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ValentinKolb/dPair/sp/common"
	"github.com/google/uuid"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"time"
)

// BenchResult holds the latency statistics of a benchmark run
type BenchResult struct {
	Endpoint string
	Rounds   int
	Elapsed  time.Duration
	// Latency holds the duration of every exchange seen by the initiator
	Latency gometrics.Timer
}

// RunBench runs a responder and an initiator in the same process and measures
// the exchange latency. An empty endpoint picks a fresh inproc address
func RunBench(ctx context.Context, config common.BenchConfig, opts ...Option) (*BenchResult, error) {
	if config.Rounds < 1 {
		return nil, fmt.Errorf("rounds must be at least 1, got %d", config.Rounds)
	}
	if config.PayloadSize < 0 {
		return nil, fmt.Errorf("payload size must not be negative, got %d", config.PayloadSize)
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "inproc://bench-" + uuid.NewString()
	}
	payload := bytes.Repeat([]byte{'x'}, config.PayloadSize)
	latency := gometrics.NewTimer()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// both sides report here, a failure of one side cancels the other
	done := make(chan error, 2)

	bound := make(chan string, 1)
	responder := NewResponder(common.ResponderConfig{
		Endpoint:    endpoint,
		Reply:       payload,
		RequestSize: len(payload),
		Count:       config.Rounds,
		Socket:      config.Socket,
	}, append(opts, WithBoundHook(func(addr string) { bound <- addr }))...)

	go func() {
		_, err := responder.Run(ctx)
		done <- err
	}()

	var addr string
	select {
	case addr = <-bound:
	case err := <-done:
		return nil, err
	}

	initiator := NewInitiator(common.InitiatorConfig{
		Endpoint:  addr,
		Request:   payload,
		ReplySize: len(payload),
		Count:     config.Rounds,
		Socket:    config.Socket,
	}, append(opts, WithExchangeObserver(latency.Update))...)

	start := time.Now()
	go func() {
		_, err := initiator.Run(ctx)
		done <- err
	}()

	var firstErr error
	for range 2 {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return &BenchResult{
		Endpoint: addr,
		Rounds:   config.Rounds,
		Elapsed:  time.Since(start),
		Latency:  latency,
	}, nil
}

// Print writes a summary of the benchmark to w
func (b *BenchResult) Print(w io.Writer) {
	ps := b.Latency.Percentiles([]float64{0.5, 0.9, 0.99})
	opsPerSec := float64(b.Rounds) / b.Elapsed.Seconds()

	fmt.Fprintf(w, "%-12s%s\n", "endpoint", b.Endpoint)
	fmt.Fprintf(w, "%-12s%d\n", "rounds", b.Latency.Count())
	fmt.Fprintf(w, "%-12s%s\n", "elapsed", b.Elapsed)
	fmt.Fprintf(w, "%-12s%.0f ops/sec\n", "throughput", opsPerSec)
	fmt.Fprintf(w, "%-12s%s\n", "min", time.Duration(b.Latency.Min()))
	fmt.Fprintf(w, "%-12s%s\n", "mean", time.Duration(b.Latency.Mean()))
	fmt.Fprintf(w, "%-12s%s\n", "p50", time.Duration(ps[0]))
	fmt.Fprintf(w, "%-12s%s\n", "p90", time.Duration(ps[1]))
	fmt.Fprintf(w, "%-12s%s\n", "p99", time.Duration(ps[2]))
	fmt.Fprintf(w, "%-12s%s\n", "max", time.Duration(b.Latency.Max()))
}
