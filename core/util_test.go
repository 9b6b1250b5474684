package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello \n"))
	assert.Equal(t, "hello", CleanString("  HeLLo ", true))
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2025, 3, 4, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), DateOf(ts))
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "0.00", Amount(0).String())
	assert.Equal(t, "1.05", Amount(105).String())
	assert.Equal(t, "1500.00", Amount(150000).String())
	assert.Equal(t, "-2.50", Amount(-250).String())
}

func TestPage(t *testing.T) {
	p := NewPage(0, 0)
	assert.Equal(t, Page{Number: 1, Size: DefaultPageSize}, p)
	assert.Equal(t, MaxPageSize, NewPage(1, 1000).Size)

	p = NewPage(2, 10)
	assert.Equal(t, 10, p.Offset())
	start, end := p.Window(15)
	assert.Equal(t, 10, start)
	assert.Equal(t, 15, end)
	start, end = NewPage(5, 10).Window(15)
	assert.Equal(t, 15, start)
	assert.Equal(t, 15, end)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("x not found")))
	assert.True(t, IsDuplicate(NewDuplicateError("already")))
	assert.False(t, IsNotFound(NewDuplicateError("already")))
	assert.Equal(t, "payment already exists", NewDuplicate("payment").Message)
	assert.True(t, IsShutdown(NewShutdownError("bye")))
}
