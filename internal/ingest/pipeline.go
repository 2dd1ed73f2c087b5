// Package ingest loads decision archives into the decision store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"

	"cassation-api/internal/domain"
	"cassation-api/internal/fetcher"
	"cassation-api/internal/metrics"
	"cassation-api/internal/parser"
	"cassation-api/internal/repository"
)

// Source lists archives and streams their documents.
type Source interface {
	ListArchives(ctx context.Context, indexURL string) ([]string, error)
	Entries(ctx context.Context, archiveURL string) iter.Seq2[fetcher.Entry, error]
}

type Config struct {
	Logger  *logrus.Logger
	Metrics metrics.IngestRecorder
}

// ArchiveResult counts what happened to one archive.
type ArchiveResult struct {
	URL           string
	Entries       int
	Parsed        int
	ParseFailures int
	Inserted      int
	Duplicates    int
}

// Report aggregates a whole run.
type Report struct {
	Archives       int
	FailedArchives int
	Entries        int
	Parsed         int
	ParseFailures  int
	Inserted       int
	Duplicates     int
}

func (r *Report) add(res ArchiveResult) {
	r.Entries += res.Entries
	r.Parsed += res.Parsed
	r.ParseFailures += res.ParseFailures
	r.Inserted += res.Inserted
	r.Duplicates += res.Duplicates
}

// Pipeline runs fetch, parse, dedup and persist for every archive of an index.
// Runs are sequential and a single pipeline must not run concurrently with another.
type Pipeline struct {
	cfg       Config
	source    Source
	decisions repository.DecisionRepository
}

func NewPipeline(cfg Config, source Source, decisions repository.DecisionRepository) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	return &Pipeline{
		cfg:       cfg,
		source:    source,
		decisions: decisions,
	}
}

// Run ingests every archive listed on the index. Archive failures are logged
// and skipped; only store-level failures or cancellation stop the run.
func (p *Pipeline) Run(ctx context.Context, indexURL string) (Report, error) {
	var report Report

	archives, err := p.source.ListArchives(ctx, indexURL)
	if err != nil {
		return report, fmt.Errorf("list archives: %w", err)
	}
	p.cfg.Logger.WithField("index", indexURL).Infof("found %d archives", len(archives))

	for _, archiveURL := range archives {
		report.Archives++
		res, err := p.IngestArchive(ctx, archiveURL)
		report.add(res)
		if err != nil {
			report.FailedArchives++
			p.cfg.Metrics.RecordArchive(false)
			if fatal(ctx, err) {
				return report, err
			}
			p.cfg.Logger.WithField("archive", archiveURL).Errorf("archive skipped: %v", err)
			continue
		}
		p.cfg.Metrics.RecordArchive(true)
	}

	p.cfg.Logger.WithFields(logrus.Fields{
		"archives":       report.Archives,
		"failed":         report.FailedArchives,
		"parsed":         report.Parsed,
		"parse_failures": report.ParseFailures,
		"inserted":       report.Inserted,
		"duplicates":     report.Duplicates,
	}).Info("ingestion finished")

	return report, nil
}

// IngestArchive parses every document of one archive and stores the new ones
// in a single transaction. Nothing is stored when the stream fails part way.
func (p *Pipeline) IngestArchive(ctx context.Context, archiveURL string) (ArchiveResult, error) {
	res := ArchiveResult{URL: archiveURL}
	logger := p.cfg.Logger.WithField("archive", archiveURL)
	logger.Info("processing archive")

	var batch []domain.Decision
	for entry, err := range p.source.Entries(ctx, archiveURL) {
		if err != nil {
			return res, fmt.Errorf("stream archive: %w", err)
		}
		res.Entries++

		decision, err := parser.Parse(entry.Data)
		if err == nil && decision.ID == "" {
			err = errors.New("document has no identifier")
		}
		if err != nil {
			res.ParseFailures++
			p.cfg.Metrics.RecordParseFailure()
			logger.WithField("entry", entry.Name).Warnf("document skipped: %v", err)
			continue
		}

		res.Parsed++
		p.cfg.Metrics.RecordEntryParsed()
		batch = append(batch, decision)
	}

	inserted, err := p.decisions.InsertNew(ctx, batch)
	if err != nil {
		return res, fmt.Errorf("persist decisions: %w", err)
	}
	res.Inserted = inserted
	res.Duplicates = res.Parsed - inserted
	p.cfg.Metrics.RecordInserted(res.Inserted)
	p.cfg.Metrics.RecordDuplicates(res.Duplicates)

	if inserted > 0 {
		logger.Infof("added %d new decisions", inserted)
	} else {
		logger.Info("no new decisions to add")
	}
	return res, nil
}

func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, repository.ErrStoreUnavailable)
}
