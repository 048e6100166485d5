package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/logger"
	"github.com/catalog/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// OrphanReportJobName is the name the orphan report runs under
const OrphanReportJobName = "media-orphan-report"

// maxReportedOrphans caps the keys kept in a TierReport
const maxReportedOrphans = 100

// ObjectLister lists stored objects of a tier
type ObjectLister interface {
	List(ctx context.Context, tier media.Tier, prefix string, fn func(storage.ObjectInfo) error) error
}

// TierReport summarizes one tier's scan
type TierReport struct {
	Tier        media.Tier
	Scanned     int
	OrphanCount int
	Orphans     []string // first keys found, at most maxReportedOrphans
	Skipped     bool     // tier is not configured
}

// OrphanReportJob finds originals that no catalog record references. These
// are left behind by uploads that failed part way. The job only reports;
// it never deletes.
type OrphanReportJob struct {
	objects ObjectLister
	records media.AssetFinder
	prefix  string
}

// NewOrphanReportJob creates the job
func NewOrphanReportJob(objects ObjectLister, records media.AssetFinder) *OrphanReportJob {
	return &OrphanReportJob{
		objects: objects,
		records: records,
		prefix:  string(media.VariantOriginal) + "/",
	}
}

// Run scans every tier. Unconfigured tiers are skipped; failures of one tier
// do not stop the scan of the others.
func (j *OrphanReportJob) Run(ctx context.Context) ([]TierReport, error) {
	log := logger.L(ctx)
	var (
		reports []TierReport
		errs    []error
	)

	for _, tier := range media.Tiers() {
		report, err := j.scan(ctx, tier)
		var cfgErr *media.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Info("Skipping unconfigured tier", zap.String("tier", tier.String()), zap.String("missing", cfgErr.Setting))
			reports = append(reports, TierReport{Tier: tier, Skipped: true})
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("scan %s tier: %w", tier, err))
		}
		reports = append(reports, report)
		log.Info("Orphan scan finished",
			zap.String("tier", tier.String()),
			zap.Int("scanned", report.Scanned),
			zap.Int("orphans", report.OrphanCount),
		)
	}
	return reports, errors.Join(errs...)
}

// Job adapts Run to the scheduler
func (j *OrphanReportJob) Job() JobFunc {
	return func(ctx context.Context) error {
		_, err := j.Run(ctx)
		return err
	}
}

func (j *OrphanReportJob) scan(ctx context.Context, tier media.Tier) (TierReport, error) {
	report := TierReport{Tier: tier}
	log := logger.L(ctx).With(zap.String("tier", tier.String()))

	err := j.objects.List(ctx, tier, j.prefix, func(obj storage.ObjectInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		referenced, err := j.records.ExistsByKey(ctx, tier, obj.Key)
		if err != nil {
			return fmt.Errorf("check %s: %w", obj.Key, err)
		}
		if referenced {
			return nil
		}
		report.OrphanCount++
		if len(report.Orphans) < maxReportedOrphans {
			report.Orphans = append(report.Orphans, obj.Key)
		}
		log.Warn("Orphaned object",
			zap.String("key", obj.Key),
			zap.Int64("size", obj.Size),
			zap.Time("last_modified", obj.LastModified),
		)
		return nil
	})
	return report, err
}
