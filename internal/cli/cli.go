package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tleroy/celcat-fetch/internal/auth"
	"github.com/tleroy/celcat-fetch/internal/config"
	"github.com/tleroy/celcat-fetch/internal/query"
	"github.com/tleroy/celcat-fetch/internal/scraper"
)

const dateFlagFormat = "2006-01-02"

var (
	flagConfig    string
	flagStart     string
	flagEnd       string
	flagResources []string
	flagFormat    string
	flagOutput    string
	flagDetails   bool
	flagDeadline  time.Duration
	flagVerbose   bool
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "celcat-fetch",
		Short: "Fetch a class schedule from a Celcat calendar service",
		Long: `Fetches a date range of events from a Celcat web calendar, normalizes
them into a deduplicated, sorted schedule, and renders the result as
text, JSON, or an iCalendar file.`,
		RunE:          runFetch,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&flagStart, "start", "", "Range start, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&flagEnd, "end", "", "Range end, YYYY-MM-DD (required)")
	cmd.Flags().StringSliceVar(&flagResources, "resource", nil, "Federation/resource identifier (repeatable)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json or ics")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Write output to file instead of stdout")
	cmd.Flags().BoolVar(&flagDetails, "details", false, "Fetch per-event sidebar details")
	cmd.Flags().DurationVar(&flagDeadline, "deadline", 0, "Overall deadline for the fetch (e.g. 2m)")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		log.SetLevel(log.DebugLevel)
	}

	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON && format != FormatICS {
		return fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", flagFormat)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("no Celcat base URL configured (set base_url or CELCAT_BASE_URL)")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return fmt.Errorf("missing credentials (set username/password or CELCAT_USERNAME/CELCAT_PASSWORD)")
	}

	start, err := time.Parse(dateFlagFormat, flagStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(dateFlagFormat, flagEnd)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	scraperCfg := scraper.Config{
		BaseURL:        cfg.BaseURL,
		Credentials:    auth.Credentials{Username: cfg.Username, Password: cfg.Password},
		Timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		Concurrency:    cfg.Concurrency,
		RetryLimit:     cfg.Retries,
		MaxWindowSpan:  time.Duration(cfg.WindowDays) * 24 * time.Hour,
		Location:       loc,
		IncludeDetails: flagDetails || cfg.IncludeDetails,
	}
	if cfg.CleanEvents {
		f := cfg.Filter
		scraperCfg.Filter = &f
	}

	sc, err := scraper.New(scraperCfg)
	if err != nil {
		return fmt.Errorf("initializing scraper: %w", err)
	}

	resources := flagResources
	if len(resources) == 0 {
		resources = cfg.Resources
	}

	ctx := cmd.Context()
	if flagDeadline > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, flagDeadline)
		defer cancel()
	}

	result, err := sc.FetchSchedule(ctx, query.Query{
		Start:       start,
		End:         end,
		ResourceIDs: resources,
		Location:    loc,
	})
	if err != nil {
		return fmt.Errorf("fetching schedule: %w", err)
	}

	out := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return WriteOutput(out, result, format)
}
