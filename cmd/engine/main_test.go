package main

import (
	"context"
	"testing"

	"score/commons/config"

	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

func settingsFor(t *testing.T, args ...string) config.Settings {
	t.Helper()
	var s config.Settings
	cmd := &cli.Command{
		Name:  "score-engine",
		Flags: config.Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			s = config.FromCommand(cmd)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"score-engine"}, args...)))
	return s
}

func TestGraphIsComplete(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "memory backends"},
		{name: "distributed backends", args: []string{
			"--queue", "sqs",
			"--split-store", "redis",
			"--counter-store", "redis",
			"--pause-store", "dynamodb",
			"--worker-store", "dynamodb",
			"--lock", "zookeeper",
			"--zk-watch-plans",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, fx.ValidateApp(options(settingsFor(t, tt.args...)), fx.NopLogger))
		})
	}
}
