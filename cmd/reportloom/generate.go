package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skylarklabs/reportloom/internal/agent"
	"github.com/skylarklabs/reportloom/internal/cache"
	"github.com/skylarklabs/reportloom/pkg/models"
)

// buildGenerateCmd wires one Agent Loop Driver session end to end:
// load config, run the loop against the Jira-backed tool catalog, extract
// issues from the resulting history, and persist through the Execution
// Cache.
func buildGenerateCmd(configPath *string) *cobra.Command {
	var (
		promptID   int
		request    string
		period     string
		userID     string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one agent session against a natural-language request and persist the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if request == "" {
				return fmt.Errorf("--request is required")
			}

			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			dedupeKey := cache.RunDedupeKey(strconv.Itoa(promptID), requestHash(request, period, userID))
			if a.dedupe.Check(dedupeKey) {
				return fmt.Errorf("generate: an identical request for prompt %d was already submitted within the dedupe window", promptID)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loop := agent.NewAgentLoop(a.provider, a.rateCtrl, a.registry, agent.DriverConfig{
				MaxIterations:     a.cfg.Loop.MaxIterations,
				Temperature:       a.cfg.Loop.Temperature,
				SystemPrompt:      a.cfg.Loop.SystemPrompt,
				SummaryMaxChars:   a.cfg.Loop.SummaryMaxChars,
				NonCacheableTools: a.cfg.Loop.NonCacheableTools,
				MaxTokens:         a.cfg.Loop.MaxTokens,
			})

			session := agent.NewSession()
			reqCtx := models.RequestContext{Period: period, UserID: userID}

			result, err := loop.Run(ctx, session, request, reqCtx)
			if err != nil {
				a.logger.Error(ctx, "generate: session failed", "error", err, "prompt_id", promptID)
				return err
			}

			out := cmd.OutOrStdout()
			if !result.Success {
				fmt.Fprintf(out, "session did not complete: %s\n", result.ErrorKind)
			}

			issues := cache.ExtractIssues(result.History, resultsByCallID(session))
			metadata := map[string]any{
				"error_kind":      result.ErrorKind,
				"elapsed_seconds": result.Elapsed.Seconds(),
				"iterations":      len(result.History),
			}
			if userID != "" {
				metadata["user_id"] = userID
			}

			execID, err := a.store.StoreRun(ctx, promptID, result.Artifact, issues, metadata)
			if err != nil {
				return fmt.Errorf("persist execution: %w", err)
			}
			fmt.Fprintf(out, "execution %s stored for prompt %d (%d issues captured)\n", execID, promptID, len(issues))

			if outputPath != "" {
				if err := os.WriteFile(outputPath, []byte(result.Artifact), 0o644); err != nil {
					return fmt.Errorf("write artifact: %w", err)
				}
				fmt.Fprintf(out, "artifact written to %s\n", outputPath)
			} else {
				fmt.Fprintln(out, result.Artifact)
			}

			if !result.Success {
				return fmt.Errorf("session finished unsuccessfully: %s", result.ErrorKind)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&promptID, "prompt-id", 0, "prompt identifier the execution is stored under")
	cmd.Flags().StringVar(&request, "request", "", "natural-language report request (required)")
	cmd.Flags().StringVar(&period, "period", "", "structured date window, e.g. 2025-10")
	cmd.Flags().StringVar(&userID, "user", "", "requesting user identifier")
	cmd.Flags().StringVar(&outputPath, "out", "", "write the artifact to this file instead of stdout")

	return cmd
}

// requestHash scopes a RunDedupe key to the content of one generate
// invocation, so two distinct requests against the same prompt are never
// conflated into a single admission-guard entry.
func requestHash(request, period, userID string) string {
	sum := sha256.Sum256([]byte(request + "\x00" + period + "\x00" + userID))
	return hex.EncodeToString(sum[:])
}

// resultsByCallID reconstructs a callID -> []models.Issue map from the
// session's transcript so cache.ExtractIssues can recover the issue list a
// search_issues/get_cached_issues call produced. The Execution History
// itself only keeps the bounded LLM-facing Result Summary (the
// {"type":"list","count":N,"items":[...]} projection), so this decodes
// that same shape back out rather than the tool's raw return value.
func resultsByCallID(session *agent.Session) map[string]any {
	out := make(map[string]any)
	for _, msg := range session.Transcript() {
		if msg.Role != models.RoleTool || msg.ToolCallID == "" {
			continue
		}
		var wrapped struct {
			Items []models.Issue `json:"items"`
		}
		if err := json.Unmarshal([]byte(msg.Content), &wrapped); err == nil && len(wrapped.Items) > 0 {
			out[msg.ToolCallID] = wrapped.Items
		}
	}
	return out
}
