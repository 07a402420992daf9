package pysbridge

import (
	"context"
	"fmt"
	"reflect"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// FuncOf adapts an arbitrary Go function to the Func convention so it can be
// registered without writing a wrapper by hand. A leading context.Context
// parameter is filled from the caller's context. Arguments are matched
// positionally and converted where the types allow it (a float64 argument
// fits an int parameter, which JSON-decoded numbers need). The last return
// value is treated as the call error when its type is error.
//
// FuncOf fails with ErrInvalidArgument when v is not a function; argument
// mismatches surface as ErrInvalidArgument failures at call time.
func FuncOf(v any) (Func, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("%T is not callable: %w", v, ErrInvalidArgument)
	}
	rt := rv.Type()
	wantsCtx := rt.NumIn() > 0 && rt.In(0) == ctxType

	return func(ctx context.Context, args ...any) (any, error) {
		in := make([]reflect.Value, 0, len(args)+1)
		if wantsCtx {
			in = append(in, reflect.ValueOf(ctx))
		}

		fixed := rt.NumIn()
		if rt.IsVariadic() {
			fixed--
		}
		for i, a := range args {
			var pt reflect.Type
			switch {
			case len(in) < fixed:
				pt = rt.In(len(in))
			case rt.IsVariadic():
				pt = rt.In(rt.NumIn() - 1).Elem()
			default:
				return nil, fmt.Errorf("too many arguments (%d): %w", len(args), ErrInvalidArgument)
			}
			av, err := argValue(i, a, pt)
			if err != nil {
				return nil, err
			}
			in = append(in, av)
		}
		if len(in) < fixed {
			return nil, fmt.Errorf("want %d arguments, got %d: %w", fixed, len(in), ErrInvalidArgument)
		}

		out := rv.Call(in)
		var callErr error
		if n := len(out); n > 0 && out[n-1].Type() == errType {
			if e := out[n-1].Interface(); e != nil {
				callErr = e.(error)
			}
			out = out[:n-1]
		}
		var result any
		if len(out) > 0 {
			result = out[0].Interface()
		}
		return result, callErr
	}, nil
}

func argValue(i int, a any, pt reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(pt), nil
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(pt) {
		return av, nil
	}
	if av.Type().ConvertibleTo(pt) {
		return av.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("argument %d: %T does not fit %s: %w", i, a, pt, ErrInvalidArgument)
}

// MustFuncOf is FuncOf for registrations known valid at compile time.
func MustFuncOf(v any) Func {
	fn, err := FuncOf(v)
	if err != nil {
		panic(err)
	}
	return fn
}
