package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/scraper"
	"github.com/hypermind/hypermind-agent/internal/setup"
)

func addEndpointFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "node host name or address")
	cmd.Flags().Int("port", config.DefaultPort, "node port")
	cmd.Flags().Int("scale-min", config.DefaultScaleMin, "lower bound of the scale window")
	cmd.Flags().Int("scale-max", config.DefaultScaleMax, "upper bound of the scale window")
	cmd.Flags().Duration("timeout", 0, "per-request timeout (overrides config)")
}

// endpointForm returns the setup form built from the endpoint flags.
func endpointForm(v *viper.Viper) map[string]any {
	return map[string]any{
		config.KeyHost:     v.GetString("host"),
		config.KeyPort:     v.GetInt("port"),
		config.KeyScaleMin: v.GetInt("scale-min"),
		config.KeyScaleMax: v.GetInt("scale-max"),
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the setup connectivity check against one node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}
			setupLogging(cfg.Agent.LogLevel)
			return runValidate(cmd.Context(), cmd.OutOrStdout(), scraper.New(cfg.Agent.RequestTimeout), endpointForm(v))
		},
	}
	addEndpointFlags(cmd)
	return cmd
}

func runValidate(ctx context.Context, w io.Writer, fetcher setup.StatsFetcher, form map[string]any) error {
	var (
		res    setup.Result
		reason = "ok"
	)
	ep, err := config.ResolveEndpoint(form, nil)
	if err != nil {
		err = &setup.RejectError{Reason: setup.ReasonInvalidInput, Err: err}
	} else {
		res, err = setup.NewValidator(fetcher).Validate(ctx, ep)
	}
	if err != nil {
		reason = string(setup.ReasonOf(err))
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Endpoint", "Scale", "Result", "Title"})
	t.AppendRow(table.Row{
		endpointLabel(form),
		fmt.Sprintf("%v..%v", form[config.KeyScaleMin], form[config.KeyScaleMax]),
		reason,
		res.Title,
	})
	if _, werr := fmt.Fprintln(w, t.Render()); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

func newPollCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll one node, or every configured entry, once",
		Long: `Poll --host once and print the normalized snapshot. Without --host every
entry of the config file is polled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}
			setupLogging(cfg.Agent.LogLevel)

			var eps []config.EndpointConfig
			if v.GetString("host") != "" {
				ep, err := config.ResolveEndpoint(endpointForm(v), nil)
				if err != nil {
					return err
				}
				eps = append(eps, ep)
			} else {
				for _, spec := range cfg.Entries {
					ep, err := config.ResolveEndpoint(spec.Data, spec.Options)
					if err != nil {
						return err
					}
					eps = append(eps, ep)
				}
			}
			if len(eps) == 0 {
				return fmt.Errorf("poll: no --host given and no entries configured")
			}
			return runPoll(cmd.Context(), cmd.OutOrStdout(), scraper.New(cfg.Agent.RequestTimeout), eps)
		},
	}
	addEndpointFlags(cmd)
	return cmd
}

type snapshotPoller interface {
	Poll(ctx context.Context, ep config.EndpointConfig) (*scraper.Snapshot, error)
}

// runPoll polls every endpoint once and prints one row per endpoint. It
// fails if any poll failed.
func runPoll(ctx context.Context, w io.Writer, p snapshotPoller, eps []config.EndpointConfig) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Endpoint", "Active Nodes", "Direct Connections", "Scale", "Ratio", "Error"})

	failed := 0
	for _, ep := range eps {
		scale := fmt.Sprintf("%d..%d", ep.ScaleMin, ep.ScaleMax)
		snap, err := p.Poll(ctx, ep)
		if err != nil {
			failed++
			t.AppendRow(table.Row{ep.UniqueID(), "", "", scale, "", err.Error()})
			continue
		}
		t.AppendRow(table.Row{
			ep.UniqueID(),
			snap.ActiveNodes,
			snap.DirectConnections,
			scale,
			strconv.FormatFloat(snap.ScaleRatio, 'f', 4, 64),
			"",
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "polled at", time.Now().UTC().Format(time.RFC3339)})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("poll: %d of %d endpoints failed", failed, len(eps))
	}
	return nil
}

func endpointLabel(form map[string]any) string {
	return fmt.Sprintf("%v:%v", form[config.KeyHost], form[config.KeyPort])
}
