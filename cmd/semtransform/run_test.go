package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semtransform/natsclient"
)

func TestConnectToNATS_ReportsAttempts(t *testing.T) {
	client, err := natsclient.NewClient("nats://127.0.0.1:1", natsclient.WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	err = connectToNATS(context.Background(), client, 700*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to NATS after")
	assert.NotContains(t, err.Error(), "after 0 attempts")
}
