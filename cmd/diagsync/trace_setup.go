package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"diagsync/internal/config"
	"diagsync/internal/trace"
)

// setupTracing builds the tracer described by the trace.* settings and
// attaches it to the command context. It returns a cleanup function that
// stops the heartbeat and flushes the tracer.
func setupTracing(cmd *cobra.Command, v *viper.Viper) (func(), error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	tc := cfg.Trace

	level, err := trace.ParseLevel(tc.Level)
	if err != nil {
		return nil, err
	}

	if level == trace.LevelOff && tc.Output == "" {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(tc.Mode)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: tc.Output,
		RingSize:   tc.RingSize,
		Heartbeat:  tc.Heartbeat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	stopHeartbeat := trace.StartHeartbeat(tracer, tc.Heartbeat)

	cleanup := func() {
		stopHeartbeat()
		if ring, ok := tracer.(*trace.Ring); ok {
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
