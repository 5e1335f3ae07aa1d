package consts

const (
	// Contract and pricing defaults
	DefaultLotSize          = 100
	DefaultRiskFreeRate     = 0.05
	DefaultVolatilityWindow = 20
	DefaultVolatility       = 0.20
	TradingDaysPerYear      = 252
	DaysPerYear             = 365.0

	// Days of history fetched before the first week so volatility has a trailing window
	DefaultHistoryBufferDays = 60

	DefaultQuoteTimeoutSeconds = 10

	// Regular session, exchange local time
	SessionOpenHour    = 9
	SessionOpenMinute  = 30
	SessionCloseHour   = 16
	SessionCloseMinute = 0

	// Strike and premium precision
	StrikeDecimals  = 2
	PremiumDecimals = 4
)

const DateLayout = "2006-01-02"
