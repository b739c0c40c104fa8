// Package mocks holds shared test doubles for the browser abstraction.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/playpi/playpi/api/schemas"
)

// MockPage mocks browser.Page.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	args := m.Called(ctx, url, timeout)
	return args.Error(0)
}

func (m *MockPage) WaitVisible(ctx context.Context, loc schemas.Locator, timeout time.Duration) error {
	args := m.Called(ctx, loc, timeout)
	return args.Error(0)
}

func (m *MockPage) IsVisible(ctx context.Context, loc schemas.Locator) (bool, error) {
	args := m.Called(ctx, loc)
	return args.Bool(0), args.Error(1)
}

func (m *MockPage) Count(ctx context.Context, loc schemas.Locator) (int, error) {
	args := m.Called(ctx, loc)
	return args.Int(0), args.Error(1)
}

func (m *MockPage) Click(ctx context.Context, loc schemas.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *MockPage) Fill(ctx context.Context, loc schemas.Locator, text string) error {
	args := m.Called(ctx, loc, text)
	return args.Error(0)
}

func (m *MockPage) Text(ctx context.Context, loc schemas.Locator) (string, error) {
	args := m.Called(ctx, loc)
	return args.String(0), args.Error(1)
}

func (m *MockPage) InnerHTML(ctx context.Context, loc schemas.Locator) (string, error) {
	args := m.Called(ctx, loc)
	return args.String(0), args.Error(1)
}

func (m *MockPage) AttrValue(ctx context.Context, loc schemas.Locator, attr string) (string, bool, error) {
	args := m.Called(ctx, loc, attr)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockPage) PageHTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) BodyText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPage) Close() error {
	args := m.Called()
	return args.Error(0)
}
