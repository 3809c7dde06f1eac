package metrics

const (
	defaultMetricsEndpoint = "/metrics"
)

// Metric types
const (
	typeCounter   = "counter"
	typeHistogram = "histogram"
)

// Metric names and labels
const (
	prefix = "crosslane_bridge_"

	prefixRequest        = prefix + "request_"
	metricRequestCount   = prefixRequest + "count"
	metricRequestLatency = prefixRequest + "latency_ms"
	labelMethod          = "method"
	labelIsSuccess       = "is_success"

	prefixTransfer           = prefix + "transfer_"
	metricTransferCount      = prefixTransfer + "count"
	metricTransferFinalCount = prefixTransfer + "final_count"
	labelSourceChain         = "source_chain"
	labelDestChain           = "dest_chain"
	labelToken               = "token"
	labelStatus              = "status"

	prefixConsensus              = prefix + "consensus_"
	metricConsensusVoteCount     = prefixConsensus + "vote_count"
	metricConsensusRoundDuration = prefixConsensus + "round_duration_sec"
	labelApproved                = "approved"
	labelValidator               = "validator"
)
