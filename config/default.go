package config

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Level = "debug"
Outputs = ["stdout"]

[BridgeController]
QuoteCacheSize = 1024

[FeeEstimator]
DefaultFeeRateBps = 10
MinimumFee = 1000
DefaultBaseGasUnits = 250000
FallbackGasPrice = 1

[Consensus]
Validators = ["val-1", "val-2", "val-3", "val-4"]
LivenessTimeout = "3m"
SweepInterval = "5s"
RoundRetention = "30m"

[Dispatcher]
NumRetries = 3
RetryInterval = "5s"

[PriceStorage]
Addr = "localhost:6379"
Username = ""
Password = ""
DB = 0

[Metrics]
Enabled = false
Port = "9092"
Endpoint = "/metrics"
`
