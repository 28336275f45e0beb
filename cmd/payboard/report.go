package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"payboard/internal/analytics"
	"payboard/internal/core"
	"payboard/internal/log"
	"payboard/internal/news/newsapi"
	"payboard/internal/report"
)

var (
	flagArticles string
	flagFormat   string
	flagOut      string
	flagQuery    string
	flagFrom     string
	flagTo       string
	flagType     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a payout report",
	Long: `Build the payout report for every author and write it as CSV, PDF or a text table.

Articles come from --articles, a JSON file holding an article array or an API
response, or else from the configured article source filtered by --query,
--from, --to and --type. Payouts use the persisted rates.`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&flagArticles, "articles", "", "JSON file of articles")
	f.StringVar(&flagFormat, "format", "text", "report format: csv, pdf or text")
	f.StringVarP(&flagOut, "out", "o", "", "output file (default stdout, or payout-report.pdf for pdf)")
	f.StringVar(&flagQuery, "query", "", "search query for the article source")
	f.StringVar(&flagFrom, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&flagTo, "to", "", "last day, YYYY-MM-DD")
	f.StringVar(&flagType, "type", string(core.FetchAll), "article type: all, news or blog")
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(flagFormat)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd.Context(), os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	articles, err := loadArticles(cmd, rt)
	if err != nil {
		return err
	}

	rep := report.New(analytics.AuthorStats(articles, rt.settings.Current()))
	var buf bytes.Buffer
	err = report.ExportWith(&buf, format, rep, report.Options{PDFFontFile: rt.cfg.PDFFontFile})
	log.NewStructuredLogger(rt.logger).LogExport(cmd.Context(), string(format), len(rep.Rows), err)
	if err != nil {
		return err
	}

	out := flagOut
	if out == "" && format == report.PDF {
		out = report.Filename(format)
	}
	if out == "" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		if err == nil && format != report.PDF {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	cmd.PrintErrf("Wrote %s report for %d authors to %s\n", format, len(rep.Rows), out)
	return nil
}

func loadArticles(cmd *cobra.Command, rt *runtime) ([]core.Article, error) {
	if flagArticles != "" {
		var r io.Reader = cmd.InOrStdin()
		if flagArticles != "-" {
			f, err := os.Open(flagArticles)
			if err != nil {
				return nil, fmt.Errorf("open articles: %w", err)
			}
			defer f.Close()
			r = f
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read articles: %w", err)
		}
		return newsapi.DecodeDocument(data)
	}

	filter := core.FetchFilter{
		SearchQuery: flagQuery,
		DateFrom:    flagFrom,
		DateTo:      flagTo,
		Type:        core.FetchType(flagType),
	}.Normalized()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return rt.backend.Articles.FetchArticles(cmd.Context(), filter)
}
