package econdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cbslwatch-backend/lib/timezone"
	"cbslwatch-backend/services/econdata/db"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// journal outcomes
const (
	OutcomeRunning = "running"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

const runIdLength = 8

// Refresh force-scrapes one cached family, overwrites its files and
// journals the attempt. the returned run reports the outcome even
// when the scrape failed, err is the scrape error itself.
func (s Service) Refresh(ctx context.Context, family string) (db.RefreshRun, error) {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("family", family))

	refresh, ok := s.refresher(family)
	if !ok {
		err := fmt.Errorf("family %q is not refreshable", family)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.RefreshRun{}, err
	}

	id, err := random.String(runIdLength)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.RefreshRun{}, err
	}

	run := db.RefreshRun{
		ID:        id,
		Family:    family,
		StartedAt: timezone.Now().Unix(),
		Outcome:   OutcomeRunning,
	}
	err = s.qry.CreateRefreshRun(ctx, db.CreateRefreshRunParams{
		ID:        run.ID,
		Family:    run.Family,
		StartedAt: run.StartedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.RefreshRun{}, err
	}

	rows, scrapeErr := refresh(ctx)

	run.FinishedAt = sql.NullInt64{Int64: timezone.Now().Unix(), Valid: true}
	run.RowCount = int64(rows)
	if scrapeErr != nil {
		run.Outcome = OutcomeFailure
		run.Error = scrapeErr.Error()
	} else {
		run.Outcome = OutcomeSuccess
	}

	err = s.qry.FinishRefreshRun(ctx, db.FinishRefreshRunParams{
		FinishedAt: run.FinishedAt.Int64,
		Outcome:    run.Outcome,
		RowCount:   run.RowCount,
		Error:      run.Error,
		ID:         run.ID,
	})
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to journal refresh",
			"family", family, "run", run.ID, "err", err)
	}

	if scrapeErr != nil {
		span.RecordError(scrapeErr)
		span.SetStatus(codes.Error, "refresh failed")
		if s.alerts != nil {
			s.alerts.RefreshFailed(ctx, family, run.ID, scrapeErr)
		}
		return run, scrapeErr
	}
	return run, nil
}

// RefreshAll refreshes every cached family in order. one family
// failing does not stop the rest, the joined error reports every
// failure.
func (s Service) RefreshAll(ctx context.Context) ([]db.RefreshRun, error) {
	ctx, span := tracer.Start(ctx, "RefreshAll")
	defer span.End()

	var runs []db.RefreshRun
	var errs []error
	for _, family := range CachedFamilies {
		run, err := s.Refresh(ctx, family)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", family, err))
		}
		if run.ID != "" {
			runs = append(runs, run)
		}
	}
	return runs, errors.Join(errs...)
}

// Journal lists recent refresh runs, newest first. family filters
// when non empty, limit defaults to 50.
func (s Service) Journal(ctx context.Context, family string, limit int) ([]db.RefreshRun, error) {
	ctx, span := tracer.Start(ctx, "Journal")
	defer span.End()
	span.SetAttributes(attribute.String("family", family))

	if limit <= 0 {
		limit = 50
	}
	if family != "" {
		return s.qry.ListRefreshRunsByFamily(ctx, db.ListRefreshRunsByFamilyParams{
			Family: family,
			Limit:  int64(limit),
		})
	}
	return s.qry.ListRefreshRuns(ctx, int64(limit))
}

// refresher returns the forced scrape for one cached family together
// with the row count it should journal.
func (s Service) refresher(family string) (func(context.Context) (int, error), bool) {
	switch family {
	case FamilyExchange:
		return func(ctx context.Context) (int, error) {
			f, err := s.exchangeFrame(ctx, true)
			if err != nil {
				return 0, err
			}
			return f.Len(), nil
		}, true
	case FamilyInflation:
		return func(ctx context.Context) (int, error) {
			records, err := s.inflationRecords(ctx, true)
			if err != nil {
				return 0, err
			}
			// the companion link file rides along, its loss is not
			// terminal
			if _, err := s.pressLinks(ctx, true); err != nil {
				slog.WarnContext(ctx, "press links refresh failed", "err", err)
			}
			return len(records), nil
		}, true
	case FamilyMoneySupply:
		return func(ctx context.Context) (int, error) {
			obs, err := s.moneySupply(ctx, true)
			if err != nil {
				return 0, err
			}
			return len(obs), nil
		}, true
	case FamilyIndicators:
		return func(ctx context.Context) (int, error) {
			docs, err := s.monthlyDocuments(ctx, true)
			if err != nil {
				return 0, err
			}
			return len(docs), nil
		}, true
	case FamilyPwe:
		return func(ctx context.Context) (int, error) {
			docs, err := s.pweDocuments(ctx, true)
			if err != nil {
				return 0, err
			}
			return len(docs), nil
		}, true
	}
	return nil, false
}
