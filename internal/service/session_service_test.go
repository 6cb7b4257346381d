package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCurrentAdoptsRequestedID(t *testing.T) {
	svc := NewSessionService(nil)

	got := svc.Current(context.Background(), 1, "resume-me")
	assert.Equal(t, "resume-me", got)
}

func TestCurrentGeneratesWithoutRedis(t *testing.T) {
	svc := NewSessionService(nil)

	got := svc.Current(context.Background(), 1, "")
	_, err := uuid.Parse(got)
	assert.NoError(t, err)

	// 没有持久层时每次都是新标识
	again := svc.Current(context.Background(), 1, "")
	assert.NotEqual(t, got, again)
}

func TestRotateAlwaysReturnsFreshID(t *testing.T) {
	svc := NewSessionService(nil)

	first := svc.Rotate(context.Background(), 1)
	second := svc.Rotate(context.Background(), 1)

	assert.NotEqual(t, first, second)
	_, err := uuid.Parse(second)
	assert.NoError(t, err)
}
