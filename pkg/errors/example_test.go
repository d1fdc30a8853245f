package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/tabula/pkg/errors"
)

// Example demonstrates creating a typed error and reading its details.
func Example() {
	err := errors.MissingColumn("email")

	fmt.Println(err.Error())
	fmt.Println(err.Detail("column"))

	// Output:
	// missing_column: column "email" does not exist
	// email
}

// ExampleWrap shows how boundary code wraps errors from other libraries.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeData, "truncated arrow stream").
		WithDetail("uri", "data/users.arrow")

	if errors.IsType(err, errors.ErrorTypeData) {
		fmt.Println("data error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("caused by unexpected EOF")
	}

	// Output:
	// data error
	// caused by unexpected EOF
}

// ExampleIoFailure shows that I/O failures keep both the path and the cause.
func ExampleIoFailure() {
	err := errors.IoFailure("/tmp/missing.tsv", io.EOF)

	fmt.Println(err.Detail("path"))
	fmt.Println(errors.Is(err, errors.ErrIO))

	// Output:
	// /tmp/missing.tsv
	// true
}
