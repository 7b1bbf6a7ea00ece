package internal

import (
	"fmt"
	"log"
	"os"

	"github.com/flexprice/billingcore/internal/domain/coupon"
	"github.com/flexprice/billingcore/internal/domain/plan"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type catalogFile struct {
	Plans   []*plan.Plan     `json:"plans"`
	Items   []*plan.Item     `json:"items"`
	Coupons []*coupon.Coupon `json:"coupons"`
}

// SeedCatalog loads CATALOG_FILE into the tenant's catalog. Entries that
// already exist are skipped so the command can be rerun.
func SeedCatalog() error {
	path := os.Getenv("CATALOG_FILE")
	if path == "" {
		return fmt.Errorf("catalog_file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog catalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse catalog file: %w", err)
	}

	s, err := newScript()
	if err != nil {
		return fmt.Errorf("failed to initialize script: %w", err)
	}
	defer s.db.Close()

	ctx := tenantContext()
	base := types.GetDefaultBaseModel(ctx)
	created, skipped := 0, 0

	record := func(kind, id string, err error) error {
		switch {
		case err == nil:
			created++
		case ierr.IsAlreadyExists(err):
			skipped++
			s.log.Infow("catalog entry already exists, skipping", "kind", kind, "id", id)
		default:
			return fmt.Errorf("failed to create %s %s: %w", kind, id, err)
		}
		return nil
	}

	for _, p := range catalog.Plans {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid plan %s: %w", p.ID, err)
		}
		p.BaseModel = base
		if err := record("plan", p.ID, s.params.PlanRepo.Create(ctx, p)); err != nil {
			return err
		}
	}
	for _, item := range catalog.Items {
		item.BaseModel = base
		if err := record("item", item.ID, s.params.PlanRepo.CreateItem(ctx, item)); err != nil {
			return err
		}
	}
	for _, c := range catalog.Coupons {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid coupon %s: %w", c.ID, err)
		}
		c.BaseModel = base
		if err := record("coupon", c.ID, s.params.CouponRepo.Create(ctx, c)); err != nil {
			return err
		}
	}

	log.Printf("Catalog seeded: %d created, %d skipped\n", created, skipped)
	return nil
}
