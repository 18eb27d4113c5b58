package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// Request metrics are registered in the default set of github.com/VictoriaMetrics/metrics
// and exposed by the http transport on GET /metrics.

func requestsTotal(shardId uint64, t common.MessageType) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_requests_total{shard="%d",type=%q}`, shardId, t.String()))
}

func requestErrorsTotal(shardId uint64, code table.RetCode) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`tkv_request_errors_total{shard="%d",code=%q}`, shardId, code.String()))
}

func requestDuration(t common.MessageType) *metrics.Histogram {
	return metrics.GetOrCreateHistogram(fmt.Sprintf(`tkv_request_duration_seconds{type=%q}`, t.String()))
}

// observe records a handled request
func observe(shardId uint64, req, resp *common.Message, start time.Time) {
	requestsTotal(shardId, req.MsgType).Inc()
	requestDuration(req.MsgType).UpdateDuration(start)
	if resp.ErrCode != table.RetCSuccess {
		requestErrorsTotal(shardId, resp.ErrCode).Inc()
	}
}
