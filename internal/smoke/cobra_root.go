package smoke

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sdrelay/internal/logx"
	"sdrelay/internal/stream"
	"sdrelay/pkg/types"
)

// Config holds the persistent flags.
type Config struct {
	URL     string
	LogLvl  string
	Timeout time.Duration
	Wait    time.Duration
}

// BuildRootCmd constructs the sdctl command tree writing results to out.
func BuildRootCmd(out io.Writer) *cobra.Command {
	cfg := &Config{URL: "http://127.0.0.1:7861", LogLvl: "warn"}
	var client *Client

	root := &cobra.Command{
		Use:           "sdctl",
		Short:         "Smoke-test a running sdrelay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.URL, "url", cfg.URL, "Relay base URL")
	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error")
	root.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", 0, "Overall deadline (0 = none)")
	root.PersistentFlags().DurationVar(&cfg.Wait, "wait", 0, "Wait up to this long for /healthz before running")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		client = New(cfg.URL, logx.New(os.Stderr, cfg.LogLvl, "console"))
		if cfg.Wait > 0 {
			return client.WaitReady(cmd.Context(), cfg.Wait)
		}
		return nil
	}
	withDeadline := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		if cfg.Timeout > 0 {
			return context.WithTimeout(cmd.Context(), cfg.Timeout)
		}
		return context.WithCancel(cmd.Context())
	}

	var (
		req     types.ImageRequest
		seed    int64
		outPath string
	)
	generateCmd := &cobra.Command{Use: "generate", Short: "Generate one image and write it to a file", Example: "  sdctl generate --prompt 'a red apple' --out apple.png", RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("seed") {
			req.Seed = &seed
		}
		ctx, cancel := withDeadline(cmd)
		defer cancel()
		img, err := client.Generate(ctx, req)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, img, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d bytes to %s\n", len(img), outPath)
		return nil
	}}
	generateCmd.Flags().StringVar(&req.Prompt, "prompt", "", "Text prompt (required)")
	generateCmd.Flags().StringVar(&req.NegativePrompt, "negative", "", "Negative prompt")
	generateCmd.Flags().IntVar(&req.Width, "width", 512, "Image width")
	generateCmd.Flags().IntVar(&req.Height, "height", 512, "Image height")
	generateCmd.Flags().IntVar(&req.Steps, "steps", 20, "Sampling steps")
	generateCmd.Flags().Float64Var(&req.GuidanceScale, "guidance", 7.5, "Guidance scale")
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "Seed (omit for random)")
	generateCmd.Flags().StringVar(&outPath, "out", "out.png", "Output file")
	_ = generateCmd.MarkFlagRequired("prompt")

	var healthID string
	healthCmd := &cobra.Command{Use: "health", Short: "Probe backend health through the relay", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withDeadline(cmd)
		defer cancel()
		st, id, err := client.Health(ctx, healthID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s (%s): %s\n", id, st.Name, st.Status, st.Description)
		if st.Status != types.Healthy {
			return fmt.Errorf("backend is %s", st.Status)
		}
		return nil
	}}
	healthCmd.Flags().StringVar(&healthID, "id", "", "Identifier echoed by the relay")

	var (
		watchPath  string
		watchCount int
	)
	watchCmd := &cobra.Command{Use: "watch", Short: "Print events from a stream", Example: "  sdctl watch --path /sse --count 3\n  sdctl watch --path / --count 5", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withDeadline(cmd)
		defer cancel()
		return client.Watch(ctx, watchPath, watchCount, func(ev stream.Event) {
			fmt.Fprintf(out, "%d %s %s\n", ev.ID, ev.Type, ev.Data)
		})
	}}
	watchCmd.Flags().StringVar(&watchPath, "path", "/sse", "Stream path: /sse, /events or /")
	watchCmd.Flags().IntVar(&watchCount, "count", 3, "Events to read (0 = until interrupted)")

	root.AddCommand(generateCmd, healthCmd, watchCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(out, true) }})
	root.AddCommand(completionCmd)

	return root
}
