package benchmark

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/jonboulle/clockwork"

	"example.com/game-time/base/gametime"
	"example.com/game-time/core/cooldown"
	"example.com/game-time/core/timezone"
)

// RunQueryBenchmark hammers the read paths that gameplay logic hits
// per interaction: calendar projection, cooldown checks, and world
// time derivation. Latencies are reported in nanoseconds.
func RunQueryBenchmark() {
	const numClientGoroutine = 8
	const numRequestPerClient = 1_000_000

	var total int64 = 5 * 360 * gametime.MinutesPerDay
	cds := cooldown.NewStore(clockwork.NewRealClock(), func() int64 { return total })
	for i := 0; i < 1000; i++ {
		cds.Set(fmt.Sprintf("bench_%d", i), 3600)
	}
	tzs := timezone.NewRegistry()
	tzs.SetOffset("overworld", 180)
	if err := tzs.SetSpeed("overworld", 2.0); err != nil {
		log.Printf("Failed to configure benchmark world: %v", err)
		return
	}

	var mu sync.Mutex
	sg := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(numClientGoroutine)
	for i := numClientGoroutine; i > 0; i-- {
		go func(worker int) {
			hg := hdrhistogram.New(1, 50_000_000, 5)

			defer wg.Done()
			<-sg
			id := fmt.Sprintf("bench_%d", worker)
			for j := numRequestPerClient; j > 0; j-- {
				t0 := time.Now()

				_ = gametime.At(total)
				_ = cds.IsOver(id)
				_ = cds.Remaining(id)
				_ = tzs.WorldTotalMinutes("overworld", total)
				_ = tzs.VisualTicks("overworld", total)

				err := hg.RecordValue(time.Since(t0).Nanoseconds())
				if err != nil {
					log.Printf("Failed to record histogram value: %v", err)
					return
				}
			}
			mu.Lock()
			defer mu.Unlock()
			hg.PercentilesPrint(os.Stdout, 1, 1.0)
		}(i)
	}
	t0 := time.Now()
	close(sg)
	wg.Wait()
	log.Printf("Queries completed in %v", time.Since(t0))
}
