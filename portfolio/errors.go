package portfolio

import (
	"errors"
	"fmt"
)

// Kind classifies a LedgerError.
type Kind int

const (
	// KindValidation means the request was rejected before any computation.
	KindValidation Kind = iota + 1
	// KindProcessing means a collaborator failed while the fill was staged.
	KindProcessing
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProcessing:
		return "processing"
	}
	return "unknown"
}

var (
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrInvalidLeverage  = errors.New("leverage must be positive")
	ErrInvalidQuantity  = errors.New("fill quantity must be non-zero")
	ErrQuantityOverflow = errors.New("position quantity overflows int64")
	ErrInvalidTime      = errors.New("fill time outside the ULID range")
	ErrNegativePrice    = errors.New("price must not be negative")
	ErrInsufficientCash = errors.New("fill would leave cash negative")
	ErrInvalidHolding   = errors.New("invalid holding snapshot")
	ErrFeeModel         = errors.New("fee model failed")
)

// LedgerError is returned by every failing engine operation. Ledger state is
// unchanged whenever one is returned.
type LedgerError struct {
	Kind   Kind
	Op     string
	Symbol string
	Err    error
}

func (e *LedgerError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s error: %v", e.Op, e.Symbol, e.Kind, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

func validationError(op, symbol string, err error) error {
	return &LedgerError{Kind: KindValidation, Op: op, Symbol: symbol, Err: err}
}

func processingError(op, symbol string, err error) error {
	return &LedgerError{Kind: KindProcessing, Op: op, Symbol: symbol, Err: err}
}

// KindOf returns the kind of a LedgerError in err's chain, or 0.
func KindOf(err error) Kind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsProcessing(err error) bool { return KindOf(err) == KindProcessing }
