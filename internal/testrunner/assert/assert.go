// Package assert holds the small generic assertion helpers used by arith
// tests. Every helper reports through t.Error and returns whether the
// check held, so callers can stop early with `if !assert.X(...) { return }`.
package assert

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

// check reports detail when ok is false. Callers mark themselves as
// helpers, so the failure points at the test line.
func check(t testing.TB, ok bool, op string, detail func() string, msgAndArgs ...any) bool {
	t.Helper()
	if ok {
		return true
	}
	msg := op + ": " + detail()
	if len(msgAndArgs) > 0 {
		msg += " (" + strings.TrimSpace(fmt.Sprintln(msgAndArgs...)) + ")"
	}
	t.Error(msg)
	return false
}

// Equal asserts got == want.
func Equal[T comparable](t testing.TB, got, want T, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, got == want, "Equal", func() string {
		return fmt.Sprintf("got %#v, want %#v", got, want)
	}, msgAndArgs...)
}

// SliceEqual asserts that two slices hold the same elements in order.
func SliceEqual[T comparable](t testing.TB, got, want []T, msgAndArgs ...any) bool {
	t.Helper()
	if len(got) != len(want) {
		return check(t, false, "SliceEqual", func() string {
			return fmt.Sprintf("got %v (len %d), want %v (len %d)", got, len(got), want, len(want))
		}, msgAndArgs...)
	}
	for i := range got {
		if got[i] != want[i] {
			return check(t, false, "SliceEqual", func() string {
				return fmt.Sprintf("element %d: got %v, want %v", i, got[i], want[i])
			}, msgAndArgs...)
		}
	}
	return true
}

func Nil(t testing.TB, v any, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, isNil(v), "Nil", func() string { return fmt.Sprintf("got %T(%v)", v, v) }, msgAndArgs...)
}

func NotNil(t testing.TB, v any, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, !isNil(v), "NotNil", func() string { return "got nil" }, msgAndArgs...)
}

func True(t testing.TB, cond bool, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, cond, "True", func() string { return "condition is false" }, msgAndArgs...)
}

func False(t testing.TB, cond bool, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, !cond, "False", func() string { return "condition is true" }, msgAndArgs...)
}

func Error(t testing.TB, err error, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, err != nil, "Error", func() string { return "got nil error" }, msgAndArgs...)
}

func NoError(t testing.TB, err error, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, err == nil, "NoError", func() string { return fmt.Sprintf("unexpected error: %v", err) }, msgAndArgs...)
}

// ErrorIs asserts errors.Is(err, target).
func ErrorIs(t testing.TB, err, target error, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, errors.Is(err, target), "ErrorIs", func() string {
		return fmt.Sprintf("%v does not wrap %v", err, target)
	}, msgAndArgs...)
}

func Contains(t testing.TB, s, substr string, msgAndArgs ...any) bool {
	t.Helper()
	return check(t, strings.Contains(s, substr), "Contains", func() string {
		return fmt.Sprintf("%q does not contain %q", s, substr)
	}, msgAndArgs...)
}

// Len asserts the length of an array, slice, map, string or channel.
func Len(t testing.TB, v any, want int, msgAndArgs ...any) bool {
	t.Helper()
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array, reflect.Slice, reflect.Map, reflect.String, reflect.Chan:
		return check(t, rv.Len() == want, "Len", func() string {
			return fmt.Sprintf("got length %d, want %d", rv.Len(), want)
		}, msgAndArgs...)
	}
	return check(t, false, "Len", func() string { return fmt.Sprintf("%T has no length", v) }, msgAndArgs...)
}

// Eventually polls condition every interval until it holds or within
// elapses.
func Eventually(t testing.TB, condition func() bool, within, interval time.Duration, msgAndArgs ...any) bool {
	t.Helper()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	timeout := time.After(within)
	for !condition() {
		select {
		case <-timeout:
			return check(t, condition(), "Eventually", func() string {
				return fmt.Sprintf("condition not met within %s", within)
			}, msgAndArgs...)
		case <-ticker.C:
		}
	}
	return true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
