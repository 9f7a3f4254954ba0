package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricUnitProcessed     = "UnitProcessed"
	MetricDownloadFailure   = "DownloadFailure"
	MetricVariableExtracted = "VariableExtracted"
	MetricVariableFailed    = "VariableFailed"

	// Dimension Keys
	DimCycle      = "Cycle"
	DimVariable   = "Variable"
	DimResolution = "Resolution"

	// Metric Namespace
	MetricNamespace = "GFSPull"
)
