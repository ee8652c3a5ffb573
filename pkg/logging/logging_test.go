package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifelong-app/lifelong/pkg/logging"
)

func TestNewReturnsUsableLogger(t *testing.T) {
	logger := logging.New()
	require.NotNil(t, logger)
	require.NotNil(t, logger.BaseLogger())

	// Must not panic.
	logger.Info("hello", "key", "value")
}

func TestNewQuietDiscardsOutput(t *testing.T) {
	logger := logging.NewQuiet()
	require.NotNil(t, logger)
	logger.Error("should go nowhere")
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, logging.Default(), logging.Default())
}
