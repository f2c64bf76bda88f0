package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/leaddesk/leaddesk/testing"
)

func TestInTestModeFollowsSharedTestMain(t *testing.T) {
	assert.True(t, InTestMode(), "the shared test package sets LEADDESK_TEST_MODE at init")
	assert.True(t, InTestMode())
}
