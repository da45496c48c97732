// Package assert wraps gotest.tools and testify so failures print the full eris stack of the error under test.
package assert

import (
	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rotisserie/eris"
	testify "github.com/stretchr/testify/assert"
	gotest "gotest.tools/v3/assert"

	"pkg.world.dev/world-engine/blobstore/datablob"
)

type helperT interface {
	Helper()
}

// IgnoreOwner makes DeepEqual skip the owning slot stored inside data blobs.
var IgnoreOwner = cmpopts.IgnoreTypes(datablob.Base{})

func Assert(t gotest.TestingT, comparison gotest.BoolOrComparison, msgAndArgs ...interface{}) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	gotest.Assert(t, comparison, msgAndArgs...)
}

func Check(t gotest.TestingT, comparison gotest.BoolOrComparison, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return gotest.Check(t, comparison, msgAndArgs...)
}

func NilError(t gotest.TestingT, err error, msgAndArgs ...interface{}) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	msgAndArgs = append([]interface{}{eris.ToString(err, true)}, msgAndArgs...)
	gotest.NilError(t, err, msgAndArgs...)
}

func Equal(t gotest.TestingT, x, y interface{}, msgAndArgs ...interface{}) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	gotest.Equal(t, x, y, msgAndArgs...)
}

func DeepEqual(t gotest.TestingT, x, y interface{}, opts ...gocmp.Option) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	gotest.DeepEqual(t, x, y, opts...)
}

func ErrorContains(t gotest.TestingT, err error, substring string, msgAndArgs ...interface{}) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	msgAndArgs = append([]interface{}{eris.ToString(err, true)}, msgAndArgs...)
	gotest.ErrorContains(t, eris.Cause(err), substring, msgAndArgs...)
}

// ErrorIs compares the root causes of err and expected, so sentinels wrapped with eris still match.
func ErrorIs(t gotest.TestingT, err error, expected error, msgAndArgs ...interface{}) {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	msgAndArgs = append([]interface{}{eris.ToString(err, true)}, msgAndArgs...)
	gotest.ErrorIs(t, eris.Cause(err), eris.Cause(expected), msgAndArgs...)
}

// testify assert wrappers

func Len(t testify.TestingT, object interface{}, length int, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.Len(t, object, length, msgAndArgs...)
}

func True(t testify.TestingT, value bool, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.True(t, value, msgAndArgs...)
}

func False(t testify.TestingT, value bool, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.False(t, value, msgAndArgs...)
}

func Empty(t testify.TestingT, object interface{}, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.Empty(t, object, msgAndArgs...)
}

func NotEqual(t testify.TestingT, expected, actual interface{}, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.NotEqual(t, expected, actual, msgAndArgs...)
}

func Same(t testify.TestingT, expected, actual interface{}, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.Same(t, expected, actual, msgAndArgs...)
}

func Contains(t testify.TestingT, s, contains interface{}, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.Contains(t, s, contains, msgAndArgs...)
}

func InDelta(t testify.TestingT, expected, actual interface{}, delta float64, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.InDelta(t, expected, actual, delta, msgAndArgs...)
}

func NotPanics(t testify.TestingT, f testify.PanicTestFunc, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.NotPanics(t, f, msgAndArgs...)
}

// PanicsWithErrorIs asserts that f panics with an error whose root cause is expected.
func PanicsWithErrorIs(t testify.TestingT, expected error, f testify.PanicTestFunc, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	var recovered interface{}
	func() {
		defer func() { recovered = recover() }()
		f()
	}()
	err, ok := recovered.(error)
	if !ok {
		return testify.Fail(t, "function did not panic with an error", msgAndArgs...)
	}
	return testify.True(t, eris.Is(err, expected), append([]interface{}{eris.ToString(err, true)}, msgAndArgs...)...)
}

func JSONEq(t testify.TestingT, expected string, actual string, msgAndArgs ...interface{}) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	return testify.JSONEq(t, expected, actual, msgAndArgs...)
}
