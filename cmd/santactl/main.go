package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dalemusser/secretsanta/internal/app/features/drawing"
	"github.com/dalemusser/secretsanta/internal/app/store/remote"
	"github.com/dalemusser/secretsanta/internal/app/system/draw"
	"github.com/dalemusser/secretsanta/internal/app/system/lease"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "santactl",
		Short:         "Run and preview gift-exchange draws",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	logger := func() *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return l
	}

	cmd.AddCommand(newDrawCommand(logger))
	cmd.AddCommand(newPreviewCommand())
	return cmd
}

func newDrawCommand(logger func() *zap.Logger) *cobra.Command {
	var (
		groupID       string
		baseURL       string
		groupsBaseURL string
		timeout       time.Duration
		concurrency   int
	)

	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Perform the draw for a group against the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			log := logger()
			defer func() { _ = log.Sync() }()

			client, err := remote.New(remote.Config{
				BaseURL:       baseURL,
				GroupsBaseURL: groupsBaseURL,
				Timeout:       timeout,
			}, &http.Client{}, log)
			if err != nil {
				return err
			}
			svc := drawing.NewService(client, client, draw.New(), log,
				drawing.WithLocker(lease.NewLocal(), 0),
				drawing.WithConcurrency(concurrency))
			return runDraw(ctx, cmd.OutOrStdout(), svc, groupID)
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "Group ID to draw")
	cmd.Flags().StringVar(&baseURL, "base-url", os.Getenv("SECRETSANTA_REMOTE_BASE_URL"), "Remote store base URL (participants, users)")
	cmd.Flags().StringVar(&groupsBaseURL, "groups-base-url", os.Getenv("SECRETSANTA_REMOTE_GROUPS_BASE_URL"), "Remote store base URL for groups")
	cmd.Flags().DurationVar(&timeout, "timeout", remote.DefaultTimeout, "Per-request timeout")
	cmd.Flags().IntVar(&concurrency, "concurrency", drawing.DefaultConcurrency, "Concurrent participant writes")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

// drawer is the part of *drawing.Service the draw command uses.
type drawer interface {
	PerformDraw(ctx context.Context, groupID string) (drawing.Result, error)
}

// runDraw prints the summary line. A partial failure is printed and also
// returned so the exit status is non-zero.
func runDraw(ctx context.Context, w io.Writer, svc drawer, groupID string) error {
	res, err := svc.PerformDraw(ctx, groupID)
	if err != nil && !drawing.IsPartialFailure(err) {
		return err
	}
	fmt.Fprintln(w, res.Summary())
	return err
}

type giversFile struct {
	Givers []string `yaml:"givers"`
}

func newPreviewCommand() *cobra.Command {
	var (
		file string
		seed int64
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Compute an assignment for a YAML list of givers without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			return runPreview(cmd.OutOrStdout(), f, seed)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML file with a top-level 'givers' list")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = seed from clock)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type pair struct {
	Giver    string `json:"giver"`
	Receiver string `json:"receiver"`
}

// runPreview reads givers from r and writes the assignment as JSON, sorted
// by giver.
func runPreview(w io.Writer, r io.Reader, seed int64) error {
	var in giversFile
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("parse givers: %w", err)
	}

	engine := draw.New()
	if seed != 0 {
		engine = draw.NewSeeded(seed)
	}
	a, err := engine.Assign(in.Givers)
	if err != nil {
		return err
	}

	out := make([]pair, 0, len(a))
	for g, rcv := range a {
		out = append(out, pair{Giver: g, Receiver: rcv})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Giver < out[j].Giver })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
