package pagination

// Offset pagination used by the list endpoints. Every listing accepts
// limit/offset query params and reports the unfiltered total so clients can
// render page controls.

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 200
)

// Params holds pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Offset int
}

// Normalize enforces the configured default and maximum limits and clamps
// negative offsets to zero.
func (p Params) Normalize() Params {
	return Params{
		Limit:  NormalizeLimit(p.Limit),
		Offset: NormalizeOffset(p.Offset),
	}
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizeOffset clamps negative offsets to zero.
func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// Page is the standard shape for a paginated listing.
type Page[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewPage wraps rows with their paging metadata, never returning a nil slice.
func NewPage[T any](rows []T, total int64, params Params) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{
		Data:   rows,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
}
