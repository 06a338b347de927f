package handler

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/checkout-intent/internal/domain/checkout"
	"github.com/xenking/checkout-intent/internal/domain/pricing"
)

var (
	errMissingItems = errors.New("items is required")
	errTrailingData = errors.New("unexpected data after request object")
)

// fieldError reports an invalid request field by its dotted path.
type fieldError struct {
	Path string
	Err  error
}

func (e *fieldError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *fieldError) Unwrap() error {
	return e.Err
}

// clientMessage describes a decoding failure without decoder internals.
func clientMessage(err error) string {
	var fe *fieldError
	switch {
	case errors.As(err, &fe):
		return "invalid field " + fe.Path
	case errors.Is(err, errMissingItems), errors.Is(err, errTrailingData):
		return err.Error()
	default:
		return "malformed JSON body"
	}
}

// decodeRequest parses
//
//	{"items": {"packageId": 1, "upgrades": [...], "size": "...", "coupon": "..."}, "email": "..."}
//
// Unknown fields are ignored and a repeated key overrides earlier ones. A
// numeric packageId is normalized so that 2 and 2.0 select the same package.
func decodeRequest(data []byte) (checkout.Request, error) {
	var (
		req       checkout.Request
		haveItems bool
	)

	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			req.Cart = pricing.Cart{}
			if d.Next() == jx.Null {
				haveItems = false
				return d.Null()
			}
			if err := decodeCart(d, &req.Cart); err != nil {
				var fe *fieldError
				if errors.As(err, &fe) {
					return fe
				}
				return &fieldError{Path: "items", Err: err}
			}
			haveItems = true
			return nil
		case "email":
			s, err := optString(d)
			if err != nil {
				return &fieldError{Path: "email", Err: err}
			}
			req.Email = s
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		var fe *fieldError
		if errors.As(err, &fe) {
			return checkout.Request{}, fe
		}
		return checkout.Request{}, errors.Wrap(err, "decode request")
	}
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return checkout.Request{}, errTrailingData
	}
	if !haveItems {
		return checkout.Request{}, errMissingItems
	}
	return req, nil
}

func decodeCart(d *jx.Decoder, cart *pricing.Cart) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "packageId":
			cart.PackageID, err = decodePackageID(d)
		case "upgrades":
			cart.Upgrades, err = decodeUpgrades(d)
		case "size":
			cart.Size, err = optString(d)
		case "coupon":
			cart.Coupon, err = optString(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return &fieldError{Path: "items." + key, Err: err}
		}
		return nil
	})
}

func decodePackageID(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return pricing.NormalizeNumericID(n.String()), nil
	default:
		// Not a valid id; keep the raw text so it is still visible in the
		// charge metadata. It prices as the default package.
		raw, err := d.Raw()
		if err != nil {
			return "", err
		}
		return raw.String(), nil
	}
}

// decodeUpgrades returns nil for a missing or null list and a non-nil slice
// otherwise, preserving order and duplicates.
func decodeUpgrades(d *jx.Decoder) ([]string, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
	default:
		return nil, errors.New("expected array")
	}

	ids := make([]string, 0, 2)
	err := d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			ids = append(ids, s)
			return nil
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			ids = append(ids, n.String())
			return nil
		default:
			return errors.Errorf("unexpected %s in upgrades", d.Next())
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func optString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	default:
		return "", errors.Errorf("expected string, got %s", d.Next())
	}
}
