package dataset

import (
	"errors"
	"strconv"
	"strings"
)

// errMissingColumn is wrapped by TypeCoercionError when a hint names a column
// the source does not have.
var errMissingColumn = errors.New("hinted column not present in header")

// Truthy and falsy spellings accepted for bool columns, compared lowercased.
var (
	truthy = map[string]struct{}{"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}, "ano": {}}
	falsy  = map[string]struct{}{"0": {}, "f": {}, "false": {}, "no": {}, "n": {}, "ne": {}}
)

// coerce converts a non-empty text cell to typ. Surrounding white space is
// ignored for non-string types; string cells are returned untouched.
func coerce(s string, typ Type) (any, error) {
	switch typ {
	case TypeString:
		return s, nil
	case TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, unwrapNum(err)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, unwrapNum(err)
		}
		return f, nil
	case TypeBool:
		k := strings.ToLower(strings.TrimSpace(s))
		if _, ok := truthy[k]; ok {
			return true, nil
		}
		if _, ok := falsy[k]; ok {
			return false, nil
		}
		return nil, errors.New("not a boolean")
	}
	return nil, errors.New("unsupported type " + string(typ))
}

// unwrapNum drops strconv's "strconv.ParseInt: parsing ..." prefix; the
// TypeCoercionError already names the value.
func unwrapNum(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}
