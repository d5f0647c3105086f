package domain

import "errors"

// Configuration errors represent invalid user input. They are surfaced
// before a simulation starts; the engine never sees an invalid config.
var (
	// ErrWeightsExceedBudget indicates the asset weights sum past 100%.
	ErrWeightsExceedBudget = errors.New("asset weights exceed 100%")

	// ErrWeightOutOfRange indicates a single asset weight outside [0, 100].
	ErrWeightOutOfRange = errors.New("asset weight out of range")

	// ErrNoAssets indicates a scenario with an empty asset list.
	ErrNoAssets = errors.New("no assets configured")

	// ErrEmptySymbol indicates an asset with a blank ticker symbol.
	ErrEmptySymbol = errors.New("asset symbol cannot be empty")

	// ErrNegativeCapital indicates a negative initial capital or loan amount.
	ErrNegativeCapital = errors.New("capital amounts cannot be negative")

	// ErrInvalidLoanTerm indicates an amortized loan without a positive term.
	ErrInvalidLoanTerm = errors.New("amortized loan requires a positive term")
)

// Data availability errors are fatal preconditions: they fire before the
// day loop begins and are never retried.
var (
	// ErrNoData indicates the provider returned an empty price table.
	ErrNoData = errors.New("no price data available")

	// ErrSymbolNotInTable indicates a configured symbol never appears in
	// the fetched price table.
	ErrSymbolNotInTable = errors.New("symbol not present in price table")
)

// Analysis errors degrade gracefully: the rest of the result stands.
var (
	// ErrInsufficientHistory indicates the record series is shorter than
	// the requested rolling-return window.
	ErrInsufficientHistory = errors.New("insufficient history for rolling window")

	// ErrRunNotFound indicates a simulation run ID with no stored result.
	ErrRunNotFound = errors.New("simulation run not found")
)
