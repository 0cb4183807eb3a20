package cart

// Outcome tags how a cart operation ended.
type Outcome int

const (
	// OK means the cart changed and was persisted.
	OK Outcome = iota
	// Ignored means the request was a no-op, such as a non-positive amount.
	Ignored
	// OutOfStock means the catalog cannot cover the requested quantity.
	OutOfStock
	// NotFound means the product has no line item in the cart.
	NotFound
	// Failed means the catalog or the snapshot slot returned an error.
	Failed
)

// String returns a snake_case name for logs and span attributes.
func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Ignored:
		return "ignored"
	case OutOfStock:
		return "out_of_stock"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is returned by every cart operation instead of an error.
// Cart is the state after the operation, whether or not it changed.
type Result struct {
	Outcome Outcome
	Message string
	Err     error
	Cart    Cart
}

// Changed reports whether the operation committed a new cart.
func (r Result) Changed() bool { return r.Outcome == OK }

func ok(c Cart) Result { return Result{Outcome: OK, Cart: c} }

func ignored(c Cart) Result { return Result{Outcome: Ignored, Cart: c} }

func outOfStock(c Cart) Result {
	return Result{Outcome: OutOfStock, Message: MsgOutOfStock, Err: ErrOutOfStock, Cart: c}
}

func failed(c Cart, msg string, err error) Result {
	return Result{Outcome: Failed, Message: msg, Err: err, Cart: c}
}
