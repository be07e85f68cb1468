package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type exchangeStat struct {
	requests int64
	bytes    int64
}

var (
	errorsGateway  int64
	errorsPipeline int64
	warnsGateway   int64
	warnsPipeline  int64
	legsEvaluated  int64
	legsFailed     int64
	gatewayFetches int64
	artifactWrites int64
	artifactBytes  int64
	exchangeStats  sync.Map // map[string]*exchangeStat
)

func recordWarn(component string) {
	if strings.Contains(component, "gateway") {
		atomic.AddInt64(&warnsGateway, 1)
	} else {
		atomic.AddInt64(&warnsPipeline, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "gateway") {
		atomic.AddInt64(&errorsGateway, 1)
	} else {
		atomic.AddInt64(&errorsPipeline, 1)
	}
}

// IncrementLegEvaluated counts one completed leg evaluation; failed marks
// legs whose metrics came back entirely absent.
func IncrementLegEvaluated(failed bool) {
	atomic.AddInt64(&legsEvaluated, 1)
	if failed {
		atomic.AddInt64(&legsFailed, 1)
	}
}

// IncrementGatewayFetch records one outbound exchange API call.
func IncrementGatewayFetch(exchange string, size int) {
	atomic.AddInt64(&gatewayFetches, 1)
	v, _ := exchangeStats.LoadOrStore(exchange, &exchangeStat{})
	es := v.(*exchangeStat)
	atomic.AddInt64(&es.requests, 1)
	atomic.AddInt64(&es.bytes, int64(size))
}

// IncrementArtifactWrite records one persisted output file and its size.
func IncrementArtifactWrite(size int64) {
	atomic.AddInt64(&artifactWrites, 1)
	atomic.AddInt64(&artifactBytes, size)
}

// StartReport begins periodic logging of runtime and scan statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// LogFinalReport emits one closing statistics entry, for one-shot runs
// that finish before the periodic ticker fires.
func LogFinalReport(ctx context.Context, log *Log) {
	logReport(ctx, log)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	exchangeData := map[string]map[string]int64{}
	exchangeStats.Range(func(k, v any) bool {
		name := k.(string)
		es := v.(*exchangeStat)
		exchangeData[name] = map[string]int64{
			"requests": atomic.LoadInt64(&es.requests),
			"bytes":    atomic.LoadInt64(&es.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}
	memMB := int64(0)
	if memStats != nil {
		memMB = int64(memStats.Used) / 1024 / 1024
	}

	fields := Fields{
		"errors_gateway":  atomic.LoadInt64(&errorsGateway),
		"errors_pipeline": atomic.LoadInt64(&errorsPipeline),
		"warns_gateway":   atomic.LoadInt64(&warnsGateway),
		"warns_pipeline":  atomic.LoadInt64(&warnsPipeline),
		"legs_evaluated":  atomic.LoadInt64(&legsEvaluated),
		"legs_failed":     atomic.LoadInt64(&legsFailed),
		"gateway_fetches": atomic.LoadInt64(&gatewayFetches),
		"artifact_writes": atomic.LoadInt64(&artifactWrites),
		"artifact_bytes":  atomic.LoadInt64(&artifactBytes),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       memMB,
		"exchanges":       exchangeData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("Scan-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("Scan-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memMB))},
		{MetricName: aws.String("Scan-LegsEvaluated"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&legsEvaluated)))},
		{MetricName: aws.String("Scan-LegsFailed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&legsFailed)))},
		{MetricName: aws.String("Scan-GatewayFetches"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&gatewayFetches)))},
		{MetricName: aws.String("Scan-ArtifactWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&artifactWrites)))},
		{MetricName: aws.String("Scan-ArtifactBytes"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(atomic.LoadInt64(&artifactBytes)))},
		{MetricName: aws.String("Scan-ErrorsGateway"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsGateway)))},
		{MetricName: aws.String("Scan-WarnsGateway"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsGateway)))},
	}

	for name, stats := range exchangeData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Scan-ExchangeRequests"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Exchange"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["requests"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Scan-ExchangeBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Exchange"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
