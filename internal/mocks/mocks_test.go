package mocks_test

import (
	"github.com/playpi/playpi/internal/browser"
	"github.com/playpi/playpi/internal/mocks"
)

// Compile-time checks that the mocks satisfy the interfaces they stand in for.
var _ browser.Page = (*mocks.MockPage)(nil)
