// File: cmd/diagnostic/cmd_gateway.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-voicechat/internal/services/ai"
)

var completeCmd = &cobra.Command{
	Use:   "complete [prompt]",
	Short: "Request one complete reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway, err := newGateway()
		if err != nil {
			return err
		}

		start := time.Now()
		reply, err := gateway.Complete(cmd.Context(), []ai.Turn{{Role: ai.RoleUser, Text: strings.Join(args, " ")}})
		if err != nil {
			return describe(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		fmt.Fprintf(cmd.ErrOrStderr(), "completed in %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var showThinking bool

var streamCmd = &cobra.Command{
	Use:   "stream [prompt]",
	Short: "Stream a reply chunk by chunk",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway, err := newGateway()
		if err != nil {
			return err
		}

		start := time.Now()
		stream, err := gateway.CompleteStream(cmd.Context(), []ai.Turn{{Role: ai.RoleUser, Text: strings.Join(args, " ")}})
		if err != nil {
			return describe(err)
		}
		defer stream.Close()

		out := cmd.OutOrStdout()
		counts := map[ai.ChunkKind]int{}
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return describe(err)
			}
			counts[chunk.Kind]++
			switch chunk.Kind {
			case ai.ChunkText:
				fmt.Fprint(out, chunk.Text)
			case ai.ChunkThinking:
				if showThinking {
					fmt.Fprintf(out, "[thinking] %s", chunk.Text)
				}
			case ai.ChunkMeta:
				fmt.Fprintf(cmd.ErrOrStderr(), "\n[meta] %s", chunk.Text)
			}
		}
		fmt.Fprintln(out)
		fmt.Fprintf(cmd.ErrOrStderr(), "text=%d thinking=%d meta=%d in %s\n",
			counts[ai.ChunkText], counts[ai.ChunkThinking], counts[ai.ChunkMeta], time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [audio-file]",
	Short: "Transcribe an audio file and detect its language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway, err := newGateway()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		result, err := gateway.Transcribe(cmd.Context(), f, filepath.Base(args[0]))
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "language: %s\n%s\n", result.LanguageCode, result.Text)
		return nil
	},
}

func init() {
	streamCmd.Flags().BoolVar(&showThinking, "thinking", false, "Print reasoning chunks")
}

// describe adds the provider status code to gateway errors.
func describe(err error) error {
	var aiErr *ai.AIError
	if errors.As(err, &aiErr) && aiErr.Code != 0 {
		return fmt.Errorf("%s (HTTP %d): %w", aiErr.Type, aiErr.Code, err)
	}
	return err
}
