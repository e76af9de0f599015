//go:build linux || darwin

package shmregion

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniqueName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("test-%s", uuid.NewString())
}

func TestCreateThenAttach(t *testing.T) {
	name := uniqueName(t)

	producer, err := Create(name, 4096)
	require.NoError(t, err)
	defer producer.Close()

	producer.Base[100] = 0x42

	consumer, err := Attach(name)
	require.NoError(t, err)
	defer consumer.Close()

	assert.Equal(t, 4096, consumer.Size)
	assert.Equal(t, byte(0x42), consumer.Base[100])
}

func TestAttachWithoutProducerIsNotFound(t *testing.T) {
	_, err := Attach(uniqueName(t))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsUndersizedRegion(t *testing.T) {
	_, err := Create(uniqueName(t), 10)
	assert.ErrorIs(t, err, ErrTooSmall)
}

func TestCloseIsIdempotent(t *testing.T) {
	r, err := Create(uniqueName(t), 4096)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestWritesAreVisibleAcrossAttach(t *testing.T) {
	name := uniqueName(t)
	producer, err := Create(name, 8192)
	require.NoError(t, err)
	defer producer.Close()

	consumer, err := Attach(name)
	require.NoError(t, err)
	defer consumer.Close()

	for i := 0; i < 16; i++ {
		producer.Base[i] = byte(i)
	}
	for i := 0; i < 16; i++ {
		assert.Equal(t, byte(i), consumer.Base[i])
	}
}
