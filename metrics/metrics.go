package metrics

import (
	"strconv"
	"time"
)

// RecordRequest increments the request count for the method
func RecordRequest(method string, isSuccess bool) {
	counterInc(metricRequestCount, map[string]string{labelMethod: method, labelIsSuccess: strconv.FormatBool(isSuccess)})
}

// RecordRequestLatency records the latency histogram in milliseconds
func RecordRequestLatency(method string, latency time.Duration, isSuccess bool) {
	latencyMs := float64(latency) / float64(time.Millisecond)
	histogramObserve(metricRequestLatency, latencyMs, map[string]string{labelMethod: method, labelIsSuccess: strconv.FormatBool(isSuccess)})
}

// RecordTransfer increments the initiated transfer count for a lane and token
func RecordTransfer(sourceChain, destChain, token string) {
	counterInc(metricTransferCount, map[string]string{labelSourceChain: sourceChain, labelDestChain: destChain, labelToken: token})
}

// RecordTransferFinal increments the finalized transfer count per terminal status
func RecordTransferFinal(sourceChain, destChain, status string) {
	counterInc(metricTransferFinalCount, map[string]string{labelSourceChain: sourceChain, labelDestChain: destChain, labelStatus: status})
}

// RecordVote increments the consensus vote count for a validator
func RecordVote(validator string, approved bool) {
	counterInc(metricConsensusVoteCount, map[string]string{labelValidator: validator, labelApproved: strconv.FormatBool(approved)})
}

// RecordConsensusRoundDuration records how long a round took to finalize
func RecordConsensusRoundDuration(d time.Duration, approved bool) {
	histogramObserve(metricConsensusRoundDuration, d.Seconds(), map[string]string{labelApproved: strconv.FormatBool(approved)})
}
