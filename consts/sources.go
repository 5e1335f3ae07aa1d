package consts

const (
	// History sources
	SourceYahoo    = "yahoo"
	SourceLongport = "longport"
	SourceFinnhub  = "finnhub"
	SourceCSV      = "csv"
	SourceStatic   = "static"
	SourceArchive  = "archive"
)

// HistorySources lists the values accepted by the data_source setting.
var HistorySources = []string{SourceYahoo, SourceLongport, SourceFinnhub, SourceCSV}

const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
