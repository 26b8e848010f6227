package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// GlideSuite gives each test a fresh GlideServer, logger and context
type GlideSuite struct {
	suite.Suite

	Server *GlideServer
	Logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// SetupTest runs before each test in the suite
func (s *GlideSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), time.Minute)
	s.Server = NewGlideServer(s.T())
	s.Logger = TestLogger(s.T())
}

// TearDownTest runs after each test in the suite
func (s *GlideSuite) TearDownTest() {
	s.cancel()
}

// Context returns the test context
func (s *GlideSuite) Context() context.Context {
	return s.ctx
}

// IntegrationTest skips t in short mode
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
