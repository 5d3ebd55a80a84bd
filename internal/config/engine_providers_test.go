package config

import (
	"testing"

	commonsConfig "score/commons/config"
	"score/internal/lock/local"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideKeyLocker(t *testing.T) {
	locker, err := ProvideKeyLocker(commonsConfig.Settings{
		SplitStore: commonsConfig.BackendMemory,
		PauseStore: commonsConfig.BackendMemory,
		Lock:       commonsConfig.BackendLocal,
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &local.KeyLocker{}, locker)

	_, err = ProvideKeyLocker(commonsConfig.Settings{
		SplitStore: commonsConfig.BackendRedis,
		PauseStore: commonsConfig.BackendMemory,
		Lock:       commonsConfig.BackendLocal,
	}, nil)
	assert.ErrorContains(t, err, "--lock=zookeeper")

	_, err = ProvideKeyLocker(commonsConfig.Settings{
		SplitStore: commonsConfig.BackendMemory,
		PauseStore: commonsConfig.BackendMemory,
		Lock:       "etcd",
	}, nil)
	assert.ErrorContains(t, err, "unknown lock")
}
